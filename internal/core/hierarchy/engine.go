package hierarchy

import (
	"github.com/keelsim/keel/internal/core/ecs"
	"github.com/keelsim/keel/internal/core/event"
)

// Engine applies hierarchy mutations against live storage while keeping
// the two-sided invariant intact: a child's Parent marker names P exactly
// when P's Children marker lists the child once.
//
// Error discipline: self-parenting is a programming error and panics.
// Stale targets (dead slots, unresolvable ids) are silent no-ops — a
// deliberate leniency, because queued mutations may outlive the slots
// they were aimed at. No error value ever crosses this boundary; callers
// inspect the resulting markers.
type Engine struct {
	world    *ecs.World
	alloc    *Allocator
	idents   *IdentityStore
	parents  *ecs.PtrComponentStore[Parent]
	children *ecs.PtrComponentStore[Children]
	bus      *event.Bus
}

// NewEngine builds the engine and registers its three marker stores with
// the world registry, so slot destruction on any path strips markers and
// recycles identities.
func NewEngine(world *ecs.World, alloc *Allocator, bus *event.Bus) *Engine {
	e := &Engine{
		world:    world,
		alloc:    alloc,
		idents:   NewIdentityStore(alloc),
		parents:  ecs.NewPtrComponentStore[Parent](),
		children: ecs.NewPtrComponentStore[Children](),
		bus:      bus,
	}
	world.Registry().Register(e.idents)
	world.Registry().Register(e.parents)
	world.Registry().Register(e.children)
	return e
}

func (e *Engine) Allocator() *Allocator { return e.alloc }

// Refresh rebuilds the allocator's id→slot reverse table from the live
// Identity markers. Run once per cycle before any other hierarchy work.
func (e *Engine) Refresh() {
	e.alloc.Rebuild(e.idents.PtrComponentStore)
}

// IdentityOf returns the slot's stable id without minting one.
func (e *Engine) IdentityOf(slot ecs.EntityID) (ID, bool) {
	if ident, ok := e.idents.Get(slot); ok {
		return ident.ID, true
	}
	return None, false
}

// IdentityFor returns the slot's stable id, minting and binding one if the
// slot has none yet.
func (e *Engine) IdentityFor(slot ecs.EntityID) ID {
	if ident, ok := e.idents.Get(slot); ok {
		return ident.ID
	}
	id := e.alloc.Allocate()
	e.idents.Set(slot, &Identity{ID: id})
	e.alloc.Bind(id, slot)
	return id
}

// ParentOf returns the stable id of the slot's parent, if it has one.
func (e *Engine) ParentOf(slot ecs.EntityID) (ID, bool) {
	if p, ok := e.parents.Get(slot); ok {
		return p.ID, true
	}
	return None, false
}

// ChildrenOf returns the slot's ordered child ids, nil if it has none.
// Callers must not mutate the returned slice.
func (e *Engine) ChildrenOf(slot ecs.EntityID) []ID {
	if c, ok := e.children.Get(slot); ok {
		return c.IDs
	}
	return nil
}

// EachIdentity visits every live identity-bearing slot.
func (e *Engine) EachIdentity(fn func(slot ecs.EntityID, id ID)) {
	e.idents.Each(func(slot ecs.EntityID, ident *Identity) {
		fn(slot, ident.ID)
	})
}

// BindRestored attaches a specific id to a slot during snapshot restore:
// the id is adopted out of the allocator's namespace and bound.
func (e *Engine) BindRestored(slot ecs.EntityID, id ID) {
	e.alloc.Adopt(id)
	e.alloc.Bind(id, slot)
	e.idents.Set(slot, &Identity{ID: id})
}

// AddChild attaches child under parent, reparenting it away from any
// previous parent. No-op if child is already a child of parent, or if
// either slot is dead. Panics if parent and child are the same slot.
func (e *Engine) AddChild(parent, child ecs.EntityID) {
	if parent == child {
		panic("hierarchy: cannot add a slot as a child of itself")
	}
	if !e.world.Alive(parent) || !e.world.Alive(child) {
		return
	}
	if e.setParent(child, parent) {
		return // already a child of this parent
	}
	childID := e.IdentityFor(child)
	e.appendChildren(parent, []ID{childID})
	e.emitChildAdded(e.IdentityFor(parent), childID)
}

// PushChildren reparents the given slots in order and appends them to the
// end of parent's child list, deduplicating first. Dead slots in the
// batch are skipped. Panics if parent appears among the children.
func (e *Engine) PushChildren(parent ecs.EntityID, children ...ecs.EntityID) {
	e.attachBatch(parent, children, -1)
}

// InsertChildren is PushChildren splicing at index instead of appending.
// Children already present in the list are removed first, shifting
// indices; an index past the end appends.
func (e *Engine) InsertChildren(parent ecs.EntityID, index int, children ...ecs.EntityID) {
	if index < 0 {
		index = 0
	}
	e.attachBatch(parent, children, index)
}

func (e *Engine) attachBatch(parent ecs.EntityID, children []ecs.EntityID, index int) {
	for _, c := range children {
		if c == parent {
			panic("hierarchy: cannot attach a slot as a child of itself")
		}
	}
	if !e.world.Alive(parent) {
		return
	}
	ids := make([]ID, 0, len(children))
	for _, c := range children {
		if !e.world.Alive(c) {
			continue
		}
		already := e.setParent(c, parent)
		id := e.IdentityFor(c)
		if containsID(ids, id) {
			continue
		}
		ids = append(ids, id)
		if !already {
			e.emitChildAdded(e.IdentityFor(parent), id)
		}
	}
	if len(ids) == 0 {
		return
	}
	if index < 0 {
		e.appendChildren(parent, ids)
	} else {
		e.spliceChildren(parent, index, ids)
	}
}

// RemoveChildren detaches only the listed slots that are currently
// children of parent: their ids leave parent's ordered list (remainder
// order kept) and their Parent markers are stripped, making them roots.
// Slots not listed under parent are untouched.
func (e *Engine) RemoveChildren(parent ecs.EntityID, children ...ecs.EntityID) {
	if !e.world.Alive(parent) {
		return
	}
	pc, ok := e.children.Get(parent)
	if !ok {
		return
	}
	parentID, _ := e.IdentityOf(parent)
	removed := make([]ID, 0, len(children))
	for _, c := range children {
		id, ok := e.IdentityOf(c)
		if !ok || !pc.Contains(id) || containsID(removed, id) {
			continue
		}
		removed = append(removed, id)
		e.parents.Remove(c)
		e.emitChildRemoved(parentID, id)
	}
	if len(removed) == 0 {
		return
	}
	kept := pc.IDs[:0]
	for _, id := range pc.IDs {
		if !containsID(removed, id) {
			kept = append(kept, id)
		}
	}
	pc.IDs = kept
	if len(pc.IDs) == 0 {
		e.children.Remove(parent)
	}
}

// ClearChildren removes parent's whole Children marker and strips the
// Parent marker from every former child in one pass.
func (e *Engine) ClearChildren(parent ecs.EntityID) {
	if !e.world.Alive(parent) {
		return
	}
	pc, ok := e.children.Get(parent)
	if !ok {
		return
	}
	parentID, _ := e.IdentityOf(parent)
	e.children.Remove(parent)
	for _, id := range pc.IDs {
		if slot, ok := e.alloc.Resolve(id); ok {
			e.parents.Remove(slot)
		}
		e.emitChildRemoved(parentID, id)
	}
}

// ReplaceChildren makes parent's children exactly the given ordered set:
// ClearChildren then PushChildren.
func (e *Engine) ReplaceChildren(parent ecs.EntityID, children ...ecs.EntityID) {
	for _, c := range children {
		if c == parent {
			panic("hierarchy: cannot attach a slot as a child of itself")
		}
	}
	e.ClearChildren(parent)
	e.attachBatch(parent, children, -1)
}

// RemoveParent strips child's Parent marker (no-op if absent) and removes
// its id from the former parent's list.
func (e *Engine) RemoveParent(child ecs.EntityID) {
	if !e.world.Alive(child) {
		return
	}
	p, ok := e.parents.Get(child)
	if !ok {
		return
	}
	former := p.ID
	e.parents.Remove(child)
	childID, _ := e.IdentityOf(child)
	if parentSlot, ok := e.alloc.Resolve(former); ok {
		e.removeFromChildren(parentSlot, childID)
	}
	if e.bus != nil {
		event.Emit(e.bus, ParentCleared{Child: childID, Former: former})
	}
}

// DestroyRecursive synchronously destroys root and everything reachable
// from it through Children links, detaching root from its own parent
// first. Identity release happens through the store's destruction hook,
// so every visited id lands back in the free pool. Sibling traversal
// order is unspecified.
func (e *Engine) DestroyRecursive(root ecs.EntityID) {
	if !e.world.Alive(root) {
		return
	}
	rootID, ok := e.IdentityOf(root)
	if !ok {
		// Never participated in the hierarchy: nothing points at it.
		e.world.DestroyNow(root)
		return
	}
	if p, ok := e.parents.Get(root); ok {
		if parentSlot, ok := e.alloc.Resolve(p.ID); ok {
			e.removeFromChildren(parentSlot, rootID)
		}
	}
	destroyed := 0
	stack := []ecs.EntityID{root}
	for len(stack) > 0 {
		at := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !e.world.Alive(at) {
			continue
		}
		if ch, ok := e.children.Get(at); ok {
			for _, id := range ch.IDs {
				if slot, ok := e.alloc.Resolve(id); ok {
					stack = append(stack, slot)
				}
			}
		}
		e.world.DestroyNow(at)
		destroyed++
	}
	if e.bus != nil {
		event.Emit(e.bus, SubtreeDestroyed{Root: rootID, Nodes: destroyed})
	}
}

// WithChildren hands a ChildBuilder to fn for spawning slots directly
// wired as children of parent. Parent gets an identity up front.
func (e *Engine) WithChildren(parent ecs.EntityID, fn func(*ChildBuilder)) {
	if !e.world.Alive(parent) {
		return
	}
	fn(&ChildBuilder{eng: e, parent: parent, parentID: e.IdentityFor(parent)})
}

// Bundle is a piece of initial attached data applied to a freshly
// spawned slot.
type Bundle func(slot ecs.EntityID)

// ChildBuilder spawns child slots under a fixed parent.
type ChildBuilder struct {
	eng      *Engine
	parent   ecs.EntityID
	parentID ID
}

// Spawn creates a slot, applies the bundles, and wires it as the last
// child of the builder's parent with a freshly minted identity.
func (b *ChildBuilder) Spawn(bundles ...Bundle) ecs.EntityID {
	slot := b.eng.world.CreateEntity()
	for _, bundle := range bundles {
		bundle(slot)
	}
	b.eng.parents.Set(slot, &Parent{ID: b.parentID})
	id := b.eng.IdentityFor(slot)
	b.eng.appendChildren(b.parent, []ID{id})
	b.eng.emitChildAdded(b.parentID, id)
	return slot
}

// SpawnEmpty creates a bare child slot.
func (b *ChildBuilder) SpawnEmpty() ecs.EntityID {
	return b.Spawn()
}

// ParentSlot returns the slot the builder attaches children to.
func (b *ChildBuilder) ParentSlot() ecs.EntityID {
	return b.parent
}

// setParent points child's Parent marker at parent, minting ids as
// needed, and detaches the child from its previous parent's list.
// Reports whether the child was already under this parent.
func (e *Engine) setParent(child, parent ecs.EntityID) bool {
	parentID := e.IdentityFor(parent)
	childID := e.IdentityFor(child)
	if p, ok := e.parents.Get(child); ok {
		if p.ID == parentID {
			return true
		}
		prev := p.ID
		p.ID = parentID
		if prevSlot, ok := e.alloc.Resolve(prev); ok {
			e.removeFromChildren(prevSlot, childID)
		}
		return false
	}
	e.parents.Set(child, &Parent{ID: parentID})
	return false
}

// appendChildren dedups the given ids out of parent's list and appends
// them at the end, creating the marker if needed.
func (e *Engine) appendChildren(parent ecs.EntityID, ids []ID) {
	pc, ok := e.children.Get(parent)
	if !ok {
		e.children.Set(parent, &Children{IDs: append([]ID(nil), ids...)})
		return
	}
	kept := pc.IDs[:0]
	for _, id := range pc.IDs {
		if !containsID(ids, id) {
			kept = append(kept, id)
		}
	}
	pc.IDs = append(kept, ids...)
}

// spliceChildren dedups the given ids out of parent's list and inserts
// them at index (clamped to the post-removal length).
func (e *Engine) spliceChildren(parent ecs.EntityID, index int, ids []ID) {
	pc, ok := e.children.Get(parent)
	if !ok {
		e.children.Set(parent, &Children{IDs: append([]ID(nil), ids...)})
		return
	}
	kept := make([]ID, 0, len(pc.IDs))
	for _, id := range pc.IDs {
		if !containsID(ids, id) {
			kept = append(kept, id)
		}
	}
	if index > len(kept) {
		index = len(kept)
	}
	out := make([]ID, 0, len(kept)+len(ids))
	out = append(out, kept[:index]...)
	out = append(out, ids...)
	out = append(out, kept[index:]...)
	pc.IDs = out
}

// removeFromChildren drops childID from the slot's list, removing the
// marker entirely if it empties.
func (e *Engine) removeFromChildren(parent ecs.EntityID, childID ID) {
	pc, ok := e.children.Get(parent)
	if !ok {
		return
	}
	kept := pc.IDs[:0]
	for _, id := range pc.IDs {
		if id != childID {
			kept = append(kept, id)
		}
	}
	pc.IDs = kept
	if len(pc.IDs) == 0 {
		e.children.Remove(parent)
	}
}

func (e *Engine) emitChildAdded(parent, child ID) {
	if e.bus != nil {
		event.Emit(e.bus, ChildAdded{Parent: parent, Child: child})
	}
}

func (e *Engine) emitChildRemoved(parent, child ID) {
	if e.bus != nil {
		event.Emit(e.bus, ChildRemoved{Parent: parent, Child: child})
	}
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
