package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/keelsim/keel/internal/core/ecs"
	"github.com/keelsim/keel/internal/core/hierarchy"
	coresys "github.com/keelsim/keel/internal/core/system"
	"github.com/keelsim/keel/internal/data"
	"github.com/keelsim/keel/internal/scripting"
	"github.com/keelsim/keel/internal/world"
)

// DirectorSystem hands the Lua director a view of the tree each cycle
// and turns the returned op list into work: spawns apply immediately,
// mutations are queued and applied in order at the PostUpdate flush.
// Ops naming ids that no longer resolve are skipped, not errors — the
// script may be reacting to a node the previous cycle destroyed.
// Phase 2 (Update).
type DirectorSystem struct {
	state   *world.State
	dir     *scripting.Director
	prefabs *data.PrefabTable
	log     *zap.Logger
}

func NewDirectorSystem(state *world.State, dir *scripting.Director, prefabs *data.PrefabTable, log *zap.Logger) *DirectorSystem {
	return &DirectorSystem{state: state, dir: dir, prefabs: prefabs, log: log}
}

func (s *DirectorSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *DirectorSystem) Update(_ time.Duration) {
	view := scripting.CycleView{Cycle: s.state.Cycle}
	for _, n := range s.state.Nodes() {
		view.Nodes = append(view.Nodes, scripting.NodeView{
			ID:       n.ID,
			Label:    n.Label,
			Parent:   n.Parent,
			Children: n.Children,
		})
	}
	for _, op := range s.dir.OnCycle(view) {
		s.apply(op)
	}
}

func (s *DirectorSystem) apply(op scripting.Op) {
	switch op.Op {
	case "spawn":
		s.applySpawn(op)
	case "add_child":
		parent, ok1 := s.resolve(op.Parent)
		child, ok2 := s.resolve(op.Child)
		if !ok1 || !ok2 {
			s.skip(op)
			return
		}
		s.state.Commands.AddChild(parent, child)
	case "push_children":
		if parent, children, ok := s.resolveBatch(op); ok {
			s.state.Commands.PushChildren(parent, children...)
		}
	case "insert_children":
		if parent, children, ok := s.resolveBatch(op); ok {
			s.state.Commands.InsertChildren(parent, op.Index, children...)
		}
	case "remove_children":
		if parent, children, ok := s.resolveBatch(op); ok {
			s.state.Commands.RemoveChildren(parent, children...)
		}
	case "replace_children":
		if parent, children, ok := s.resolveBatch(op); ok {
			s.state.Commands.ReplaceChildren(parent, children...)
		}
	case "clear_children":
		if parent, ok := s.resolve(op.Parent); ok {
			s.state.Commands.ClearChildren(parent)
		} else {
			s.skip(op)
		}
	case "remove_parent":
		if child, ok := s.resolve(op.Child); ok {
			s.state.Commands.RemoveParent(child)
		} else {
			s.skip(op)
		}
	case "destroy":
		if target, ok := s.resolve(op.Target); ok {
			s.state.Commands.DestroyRecursive(target)
		} else {
			s.skip(op)
		}
	default:
		s.log.Warn("director: unknown op", zap.String("op", op.Op))
	}
}

func (s *DirectorSystem) applySpawn(op scripting.Op) {
	var slot ecs.EntityID
	if op.Prefab != "" {
		tmpl := s.prefabs.Get(op.Prefab)
		if tmpl == nil {
			s.log.Warn("director: unknown prefab", zap.String("prefab", op.Prefab))
			return
		}
		slot = s.state.SpawnPrefab(tmpl)
	} else {
		slot = s.state.SpawnNode(op.Label, op.Lifetime)
	}
	if op.Parent != hierarchy.None {
		if parent, ok := s.resolve(op.Parent); ok {
			s.state.Commands.AddChild(parent, slot)
		} else {
			s.skip(op)
		}
	}
}

// resolveBatch resolves the parent and every resolvable child; children
// that miss are dropped from the batch.
func (s *DirectorSystem) resolveBatch(op scripting.Op) (ecs.EntityID, []ecs.EntityID, bool) {
	parent, ok := s.resolve(op.Parent)
	if !ok {
		s.skip(op)
		return 0, nil, false
	}
	children := make([]ecs.EntityID, 0, len(op.Children))
	for _, id := range op.Children {
		if slot, ok := s.resolve(id); ok {
			children = append(children, slot)
		} else {
			s.log.Debug("director: dropped unresolvable child",
				zap.String("op", op.Op), zap.Uint32("id", uint32(id)))
		}
	}
	return parent, children, true
}

func (s *DirectorSystem) resolve(id hierarchy.ID) (ecs.EntityID, bool) {
	if id == hierarchy.None {
		return 0, false
	}
	return s.state.Hierarchy.Allocator().Resolve(id)
}

func (s *DirectorSystem) skip(op scripting.Op) {
	s.log.Debug("director: skipped op with unresolvable target",
		zap.String("op", op.Op),
		zap.Uint32("parent", uint32(op.Parent)),
		zap.Uint32("child", uint32(op.Child)),
		zap.Uint32("target", uint32(op.Target)))
}
