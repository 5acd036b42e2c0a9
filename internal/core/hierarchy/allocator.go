package hierarchy

import (
	"github.com/keelsim/keel/internal/core/ecs"
)

// Allocator owns the stable-id namespace: a monotonic counter, a LIFO pool
// of released ids, and the id→slot reverse table. One instance per world,
// constructed explicitly and shared by injection; single-writer access
// only (the cycle loop).
//
// The reverse table is authoritative only within a cycle: Rebuild rederives
// it wholesale from the live Identity markers at cycle start, and minting
// and releasing keep it current for everything that happens after.
type Allocator struct {
	next  ID
	free  []ID
	slots map[ID]ecs.EntityID
}

func NewAllocator() *Allocator {
	return &Allocator{
		next:  1, // 0 is reserved as None
		free:  make([]ID, 0, 64),
		slots: make(map[ID]ecs.EntityID, 256),
	}
}

// Allocate pops the free pool if non-empty, else mints the next counter
// value. Never fails.
func (a *Allocator) Allocate() ID {
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return id
	}
	id := a.next
	a.next++
	return id
}

// Release returns an id to the free pool and drops its slot binding.
// The caller must guarantee no Parent or Children marker still references
// the id; a violated guarantee corrupts future lookups silently.
func (a *Allocator) Release(id ID) {
	if id == None {
		return
	}
	a.free = append(a.free, id)
	delete(a.slots, id)
}

// Resolve returns the slot currently bound to id. Misses for freed ids
// and for ids never bound.
func (a *Allocator) Resolve(id ID) (ecs.EntityID, bool) {
	slot, ok := a.slots[id]
	return slot, ok
}

// Bind records id→slot in the reverse table. Called on mint and on
// snapshot restore so same-cycle mints resolve without waiting for the
// next Rebuild.
func (a *Allocator) Bind(id ID, slot ecs.EntityID) {
	a.slots[id] = slot
}

// Adopt marks a specific id as in use, seeding the counter past it and
// pulling it out of the free pool. Snapshot-restore path.
func (a *Allocator) Adopt(id ID) {
	if id >= a.next {
		a.next = id + 1
	}
	for i, v := range a.free {
		if v == id {
			a.free = append(a.free[:i], a.free[i+1:]...)
			break
		}
	}
}

// Rebuild clears the reverse table and reinserts one entry per live
// Identity marker. Runs once per cycle before any other hierarchy work.
func (a *Allocator) Rebuild(idents *ecs.PtrComponentStore[Identity]) {
	clear(a.slots)
	idents.Each(func(slot ecs.EntityID, ident *Identity) {
		a.slots[ident.ID] = slot
	})
}

// Bound reports how many ids currently resolve to a slot.
func (a *Allocator) Bound() int {
	return len(a.slots)
}

// FreeCount reports the size of the free pool.
func (a *Allocator) FreeCount() int {
	return len(a.free)
}

// IdentityStore wraps the Identity component store so that any slot
// destruction, on any path, releases the slot's stable id back to the
// allocator. The registry funnels every destroy through Remove, which is
// what closes the leak a bypassed recursive-destroy would otherwise cause.
type IdentityStore struct {
	*ecs.PtrComponentStore[Identity]
	alloc *Allocator
}

func NewIdentityStore(alloc *Allocator) *IdentityStore {
	return &IdentityStore{
		PtrComponentStore: ecs.NewPtrComponentStore[Identity](),
		alloc:             alloc,
	}
}

// Remove releases the slot's id, if any, then drops the marker.
func (s *IdentityStore) Remove(slot ecs.EntityID) {
	if ident, ok := s.Get(slot); ok {
		s.alloc.Release(ident.ID)
	}
	s.PtrComponentStore.Remove(slot)
}
