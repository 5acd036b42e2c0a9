package system

import (
	"time"

	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/world"
)

// CommandFlushSystem drains the hierarchy command queue in enqueue order.
// Phase 3 (PostUpdate); register it before LifetimeSystem so scripted
// mutations land before lifetime expiry is judged.
type CommandFlushSystem struct {
	state *world.State
}

func NewCommandFlushSystem(state *world.State) *CommandFlushSystem {
	return &CommandFlushSystem{state: state}
}

func (s *CommandFlushSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CommandFlushSystem) Update(_ time.Duration) {
	s.state.Commands.Flush(s.state.Hierarchy)
}
