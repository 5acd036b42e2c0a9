package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelsim/keel/internal/core/ecs"
)

func TestAllocatorMintsSequentially(t *testing.T) {
	a := NewAllocator()
	require.Equal(t, ID(1), a.Allocate())
	require.Equal(t, ID(2), a.Allocate())
	require.Equal(t, ID(3), a.Allocate())
}

func TestAllocatorReusesLIFO(t *testing.T) {
	a := NewAllocator()
	a.Allocate() // 1
	a.Allocate() // 2
	a.Allocate() // 3

	a.Release(2)
	a.Release(3)

	require.Equal(t, ID(3), a.Allocate(), "most recently released id comes back first")
	require.Equal(t, ID(2), a.Allocate())
	require.Equal(t, ID(4), a.Allocate(), "empty pool falls back to the counter")
}

func TestAllocatorReleaseUnbinds(t *testing.T) {
	a := NewAllocator()
	id := a.Allocate()
	a.Bind(id, ecs.NewEntityID(7, 0))

	_, ok := a.Resolve(id)
	require.True(t, ok)

	a.Release(id)
	_, ok = a.Resolve(id)
	require.False(t, ok, "released id must not resolve")
	require.Equal(t, 1, a.FreeCount())
}

func TestAllocatorReleaseNoneIgnored(t *testing.T) {
	a := NewAllocator()
	a.Release(None)
	require.Equal(t, 0, a.FreeCount())
}

func TestAllocatorRebuild(t *testing.T) {
	a := NewAllocator()
	idents := ecs.NewPtrComponentStore[Identity]()

	s1 := ecs.NewEntityID(1, 0)
	s2 := ecs.NewEntityID(2, 0)
	idents.Set(s1, &Identity{ID: a.Allocate()})
	idents.Set(s2, &Identity{ID: a.Allocate()})

	// Poison the table with a stale entry, then rebuild.
	a.Bind(99, ecs.NewEntityID(42, 0))
	a.Rebuild(idents)

	slot, ok := a.Resolve(1)
	require.True(t, ok)
	require.Equal(t, s1, slot)
	slot, ok = a.Resolve(2)
	require.True(t, ok)
	require.Equal(t, s2, slot)
	_, ok = a.Resolve(99)
	require.False(t, ok, "rebuild drops entries without a live marker")
	require.Equal(t, 2, a.Bound())
}

func TestAllocatorAdoptSeedsCounter(t *testing.T) {
	a := NewAllocator()
	a.Adopt(5)
	require.Equal(t, ID(6), a.Allocate())
}

func TestAllocatorAdoptPullsFromFreePool(t *testing.T) {
	a := NewAllocator()
	a.Allocate() // 1
	a.Allocate() // 2
	a.Release(1)
	a.Release(2)

	a.Adopt(2)
	require.Equal(t, ID(1), a.Allocate(), "adopted id must not be re-minted from the pool")
}

func TestIdentityStoreRemoveReleasesID(t *testing.T) {
	a := NewAllocator()
	s := NewIdentityStore(a)
	slot := ecs.NewEntityID(1, 0)

	id := a.Allocate()
	s.Set(slot, &Identity{ID: id})
	a.Bind(id, slot)

	s.Remove(slot)
	require.Equal(t, 1, a.FreeCount())
	_, ok := a.Resolve(id)
	require.False(t, ok)
	_, ok = s.Get(slot)
	require.False(t, ok)
}
