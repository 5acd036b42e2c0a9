package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/keelsim/keel/internal/core/event"
	"github.com/keelsim/keel/internal/core/hierarchy"
	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/persist"
	"github.com/keelsim/keel/internal/world"
)

// MutationLogSystem journals hierarchy mutations to the database. It
// subscribes to the hierarchy facts on the event bus, buffers rows as
// they are dispatched at cycle start, and batch-appends them in the
// Persist phase. Rows are stamped with the dispatch cycle, one cycle
// after the mutation applied (bus double-buffering).
// Phase 4 (Persist). A nil repo disables writes but keeps the buffer
// drained.
type MutationLogSystem struct {
	state    *world.State
	repo     *persist.MutationLogRepo
	runLabel string
	log      *zap.Logger
	pending  []persist.MutationRow
	seq      int
}

func NewMutationLogSystem(state *world.State, repo *persist.MutationLogRepo, runLabel string, log *zap.Logger) *MutationLogSystem {
	s := &MutationLogSystem{state: state, repo: repo, runLabel: runLabel, log: log}
	event.Subscribe(state.Bus, func(ev hierarchy.NodeSpawned) {
		s.record("node_spawned", hierarchy.None, ev.Node)
	})
	event.Subscribe(state.Bus, func(ev hierarchy.ChildAdded) {
		s.record("child_added", ev.Parent, ev.Child)
	})
	event.Subscribe(state.Bus, func(ev hierarchy.ChildRemoved) {
		s.record("child_removed", ev.Parent, ev.Child)
	})
	event.Subscribe(state.Bus, func(ev hierarchy.ParentCleared) {
		s.record("parent_cleared", ev.Former, ev.Child)
	})
	event.Subscribe(state.Bus, func(ev hierarchy.SubtreeDestroyed) {
		s.record("subtree_destroyed", ev.Root, hierarchy.None)
	})
	return s
}

func (s *MutationLogSystem) record(op string, parent, child hierarchy.ID) {
	row := persist.MutationRow{
		Cycle:    s.state.Cycle,
		Seq:      s.seq,
		Op:       op,
		ParentID: uint32(parent),
	}
	if child != hierarchy.None {
		row.ChildIDs = []uint32{uint32(child)}
	}
	s.pending = append(s.pending, row)
	s.seq++
}

func (s *MutationLogSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *MutationLogSystem) Update(_ time.Duration) {
	if len(s.pending) == 0 {
		return
	}
	if s.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Append(ctx, s.runLabel, s.pending); err != nil {
			s.log.Error("mutation log append failed", zap.Error(err))
		}
	}
	s.pending = s.pending[:0]
	s.seq = 0
}
