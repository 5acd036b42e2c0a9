package system

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/keelsim/keel/internal/core/hierarchy"
	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/persist"
	"github.com/keelsim/keel/internal/world"
)

// SnapshotSystem saves a full tree capture every interval cycles.
// Phase 4 (Persist).
type SnapshotSystem struct {
	state    *world.State
	repo     *persist.SnapshotRepo
	interval int
	runLabel string
	log      *zap.Logger
}

func NewSnapshotSystem(state *world.State, repo *persist.SnapshotRepo, interval int, runLabel string, log *zap.Logger) *SnapshotSystem {
	return &SnapshotSystem{state: state, repo: repo, interval: interval, runLabel: runLabel, log: log}
}

func (s *SnapshotSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *SnapshotSystem) Update(_ time.Duration) {
	if s.repo == nil || s.interval <= 0 {
		return
	}
	if s.state.Cycle%uint64(s.interval) != 0 {
		return
	}
	snap := SnapshotFromState(s.state, s.runLabel)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Save(ctx, snap); err != nil {
		s.log.Error("snapshot save failed", zap.Uint64("cycle", s.state.Cycle), zap.Error(err))
		return
	}
	s.log.Info("snapshot saved",
		zap.Uint64("cycle", s.state.Cycle),
		zap.Int("nodes", len(snap.Nodes)),
		zap.String("digest", snap.Digest))
}

// SnapshotFromState flattens the current tree into snapshot rows. Child
// rank is the index within the parent's ordered list; roots rank 0.
func SnapshotFromState(st *world.State, runLabel string) *persist.Snapshot {
	nodes := st.Nodes()
	rank := make(map[hierarchy.ID]int, len(nodes))
	for _, n := range nodes {
		for i, c := range n.Children {
			rank[c] = i
		}
	}
	snap := &persist.Snapshot{
		RunLabel: runLabel,
		Cycle:    st.Cycle,
		Digest:   st.DigestHex(),
		Nodes:    make([]persist.SnapshotNode, 0, len(nodes)),
	}
	for _, n := range nodes {
		snap.Nodes = append(snap.Nodes, persist.SnapshotNode{
			NodeID:   uint32(n.ID),
			ParentID: uint32(n.Parent),
			Rank:     rank[n.ID],
			Label:    n.Label,
			Lifetime: n.Lifetime,
		})
	}
	return snap
}

// NodesFromSnapshot reassembles snapshot rows into world nodes with
// ordered child lists, ready for State.Restore.
func NodesFromSnapshot(snap *persist.Snapshot) []world.Node {
	byID := make(map[hierarchy.ID]*world.Node, len(snap.Nodes))
	order := make([]hierarchy.ID, 0, len(snap.Nodes))
	for _, row := range snap.Nodes {
		id := hierarchy.ID(row.NodeID)
		byID[id] = &world.Node{
			ID:       id,
			Label:    row.Label,
			Lifetime: row.Lifetime,
			Parent:   hierarchy.ID(row.ParentID),
		}
		order = append(order, id)
	}
	// Appending in (parent, rank) order rebuilds each child list in its
	// recorded order.
	rows := append([]persist.SnapshotNode(nil), snap.Nodes...)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ParentID != rows[j].ParentID {
			return rows[i].ParentID < rows[j].ParentID
		}
		return rows[i].Rank < rows[j].Rank
	})
	for _, row := range rows {
		if row.ParentID == 0 {
			continue
		}
		if parent, ok := byID[hierarchy.ID(row.ParentID)]; ok {
			parent.Children = append(parent.Children, hierarchy.ID(row.NodeID))
		}
	}
	out := make([]world.Node, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}
