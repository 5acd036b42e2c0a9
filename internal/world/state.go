package world

import (
	"encoding/hex"
	"sort"

	"github.com/keelsim/keel/internal/component"
	"github.com/keelsim/keel/internal/core/ecs"
	"github.com/keelsim/keel/internal/core/event"
	"github.com/keelsim/keel/internal/core/hierarchy"
	"github.com/keelsim/keel/internal/data"
)

// State composes the slot storage, the hierarchy engine, the command
// queue, the event bus, and the payload component stores into one
// simulation world. Accessed only from the cycle loop goroutine.
type State struct {
	World     *ecs.World
	Bus       *event.Bus
	Hierarchy *hierarchy.Engine
	Commands  *hierarchy.Queue
	Labels    *ecs.PtrComponentStore[component.Label]
	Lifetimes *ecs.PtrComponentStore[component.Lifetime]
	Cycle     uint64
}

func NewState() *State {
	w := ecs.NewWorld()
	bus := event.NewBus()
	eng := hierarchy.NewEngine(w, hierarchy.NewAllocator(), bus)
	labels := ecs.NewPtrComponentStore[component.Label]()
	lifetimes := ecs.NewPtrComponentStore[component.Lifetime]()
	w.Registry().Register(labels)
	w.Registry().Register(lifetimes)
	return &State{
		World:     w,
		Bus:       bus,
		Hierarchy: eng,
		Commands:  hierarchy.NewQueue(),
		Labels:    labels,
		Lifetimes: lifetimes,
	}
}

// LabelBundle attaches a Label to a spawned slot.
func (s *State) LabelBundle(name string) hierarchy.Bundle {
	return func(slot ecs.EntityID) {
		s.Labels.Set(slot, &component.Label{Name: name})
	}
}

// LifetimeBundle attaches a Lifetime to a spawned slot.
func (s *State) LifetimeBundle(cycles int) hierarchy.Bundle {
	return func(slot ecs.EntityID) {
		s.Lifetimes.Set(slot, &component.Lifetime{CyclesLeft: cycles})
	}
}

// SpawnNode creates a root node with a minted identity, an optional
// label, and an optional lifetime.
func (s *State) SpawnNode(label string, lifetime int) ecs.EntityID {
	slot := s.World.CreateEntity()
	if label != "" {
		s.Labels.Set(slot, &component.Label{Name: label})
	}
	if lifetime > 0 {
		s.Lifetimes.Set(slot, &component.Lifetime{CyclesLeft: lifetime})
	}
	id := s.Hierarchy.IdentityFor(slot)
	event.Emit(s.Bus, hierarchy.NodeSpawned{Node: id, Label: label})
	return slot
}

// SpawnPrefab instantiates a prefab tree, wiring children in template
// order, and returns the root slot.
func (s *State) SpawnPrefab(tmpl *data.PrefabNode) ecs.EntityID {
	root := s.SpawnNode(tmpl.Label, tmpl.Lifetime)
	s.spawnPrefabChildren(root, tmpl.Children)
	return root
}

func (s *State) spawnPrefabChildren(parent ecs.EntityID, children []data.PrefabNode) {
	if len(children) == 0 {
		return
	}
	s.Hierarchy.WithChildren(parent, func(b *hierarchy.ChildBuilder) {
		for i := range children {
			tmpl := &children[i]
			bundles := make([]hierarchy.Bundle, 0, 2)
			if tmpl.Label != "" {
				bundles = append(bundles, s.LabelBundle(tmpl.Label))
			}
			if tmpl.Lifetime > 0 {
				bundles = append(bundles, s.LifetimeBundle(tmpl.Lifetime))
			}
			slot := b.Spawn(bundles...)
			if id, ok := s.Hierarchy.IdentityOf(slot); ok {
				event.Emit(s.Bus, hierarchy.NodeSpawned{Node: id, Label: tmpl.Label})
			}
			s.spawnPrefabChildren(slot, tmpl.Children)
		}
	})
}

// LabelOf returns the slot's label, empty if unlabeled.
func (s *State) LabelOf(slot ecs.EntityID) string {
	if l, ok := s.Labels.Get(slot); ok {
		return l.Name
	}
	return ""
}

// Digest returns the tree digest for the current state.
func (s *State) Digest() []byte {
	return s.Hierarchy.Digest(s.LabelOf)
}

// DigestHex returns the tree digest as a hex string.
func (s *State) DigestHex() string {
	return hex.EncodeToString(s.Digest())
}

// Node is the slot-independent description of one hierarchy node, used
// for director views and snapshot rows.
type Node struct {
	ID       hierarchy.ID
	Label    string
	Lifetime int
	Parent   hierarchy.ID
	Children []hierarchy.ID
}

// Nodes returns every identity-bearing node in stable-id order.
func (s *State) Nodes() []Node {
	nodes := make([]Node, 0, 64)
	s.Hierarchy.EachIdentity(func(slot ecs.EntityID, id hierarchy.ID) {
		n := Node{ID: id, Label: s.LabelOf(slot)}
		if lt, ok := s.Lifetimes.Get(slot); ok {
			n.Lifetime = lt.CyclesLeft
		}
		if p, ok := s.Hierarchy.ParentOf(slot); ok {
			n.Parent = p
		}
		if ch := s.Hierarchy.ChildrenOf(slot); len(ch) > 0 {
			n.Children = append([]hierarchy.ID(nil), ch...)
		}
		nodes = append(nodes, n)
	})
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Restore rebuilds the world from snapshot nodes: every id is adopted
// into the allocator and bound to a fresh slot, then child lists are
// reattached in their recorded order.
func (s *State) Restore(nodes []Node) {
	slots := make(map[hierarchy.ID]ecs.EntityID, len(nodes))
	for _, n := range nodes {
		slot := s.World.CreateEntity()
		if n.Label != "" {
			s.Labels.Set(slot, &component.Label{Name: n.Label})
		}
		if n.Lifetime > 0 {
			s.Lifetimes.Set(slot, &component.Lifetime{CyclesLeft: n.Lifetime})
		}
		s.Hierarchy.BindRestored(slot, n.ID)
		slots[n.ID] = slot
	}
	for _, n := range nodes {
		if len(n.Children) == 0 {
			continue
		}
		parent := slots[n.ID]
		childSlots := make([]ecs.EntityID, 0, len(n.Children))
		for _, cid := range n.Children {
			if cslot, ok := slots[cid]; ok {
				childSlots = append(childSlots, cslot)
			}
		}
		s.Hierarchy.PushChildren(parent, childSlots...)
	}
}
