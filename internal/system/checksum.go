package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/world"
)

// ChecksumSystem records the tree digest each cycle. The digest is
// handle-independent, so two runs of the same scenario must produce the
// same sequence — the determinism check the verify drill relies on.
// Phase 4 (Persist).
type ChecksumSystem struct {
	state *world.State
	log   *zap.Logger
	last  string
}

func NewChecksumSystem(state *world.State, log *zap.Logger) *ChecksumSystem {
	return &ChecksumSystem{state: state, log: log}
}

func (s *ChecksumSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *ChecksumSystem) Update(_ time.Duration) {
	s.last = s.state.DigestHex()
	s.log.Debug("cycle digest",
		zap.Uint64("cycle", s.state.Cycle),
		zap.String("digest", s.last))
}

// Last returns the digest recorded for the most recent cycle.
func (s *ChecksumSystem) Last() string {
	return s.last
}
