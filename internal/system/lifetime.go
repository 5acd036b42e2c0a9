package system

import (
	"sort"
	"time"

	"github.com/keelsim/keel/internal/component"
	"github.com/keelsim/keel/internal/core/ecs"
	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/world"
)

// LifetimeSystem counts down Lifetime markers and destroys expired
// nodes: recursively when the node sits in the hierarchy, otherwise
// through the plain deferred destroy queue. Either path releases the
// node's identity via the store's destruction hook.
// Phase 3 (PostUpdate), after the command flush.
type LifetimeSystem struct {
	state *world.State
}

func NewLifetimeSystem(state *world.State) *LifetimeSystem {
	return &LifetimeSystem{state: state}
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LifetimeSystem) Update(_ time.Duration) {
	var expired []ecs.EntityID
	s.state.Lifetimes.Each(func(slot ecs.EntityID, lt *component.Lifetime) {
		lt.CyclesLeft--
		if lt.CyclesLeft <= 0 {
			expired = append(expired, slot)
		}
	})
	// Each walks a map, so destroy in stable-id order: the free pool is
	// LIFO and a run-dependent release order would change the ids minted
	// afterward, breaking digest reproducibility.
	sort.Slice(expired, func(i, j int) bool {
		a, _ := s.state.Hierarchy.IdentityOf(expired[i])
		b, _ := s.state.Hierarchy.IdentityOf(expired[j])
		if a != b {
			return a < b
		}
		return expired[i].Index() < expired[j].Index()
	})
	for _, slot := range expired {
		if !s.state.World.Alive(slot) {
			continue // already taken down by an earlier subtree destroy
		}
		if _, ok := s.state.Hierarchy.IdentityOf(slot); ok {
			s.state.Hierarchy.DestroyRecursive(slot)
		} else {
			s.state.World.MarkForDestruction(slot)
		}
	}
}
