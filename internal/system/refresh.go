package system

import (
	"time"

	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/world"
)

// RefreshSystem opens each cycle: it advances the cycle counter, swaps
// and dispatches the event buffers, then rebuilds the allocator's id→slot
// reverse map from the live identity markers. Every hierarchy read or
// write later in the cycle resolves through that fresh table.
// Phase 0 (Refresh).
type RefreshSystem struct {
	state *world.State
}

func NewRefreshSystem(state *world.State) *RefreshSystem {
	return &RefreshSystem{state: state}
}

func (s *RefreshSystem) Phase() coresys.Phase { return coresys.PhaseRefresh }

func (s *RefreshSystem) Update(_ time.Duration) {
	s.state.Cycle++
	s.state.Bus.SwapBuffers()
	s.state.Bus.DispatchAll()
	s.state.Hierarchy.Refresh()
}
