package system

import "time"

// Phase defines execution ordering within a single cycle.
type Phase int

const (
	PhaseRefresh    Phase = iota // 0: event buffer swap + reverse-map rebuild
	PhasePreUpdate               // 1: process last cycle's events
	PhaseUpdate                  // 2: scenario directors
	PhasePostUpdate              // 3: command flush, lifetime decay
	PhasePersist                 // 4: digest, snapshot, mutation log
	PhaseCleanup                 // 5: destroy queued slots
)

// System is the interface every cycle system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
