package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keelsim/keel/internal/core/hierarchy"
	"github.com/keelsim/keel/internal/data"
)

func squadPrefab() *data.PrefabNode {
	return &data.PrefabNode{
		Label: "squad",
		Children: []data.PrefabNode{
			{Label: "leader"},
			{Label: "support", Lifetime: 5, Children: []data.PrefabNode{
				{Label: "medkit", Lifetime: 3},
			}},
		},
	}
}

func TestSpawnNode(t *testing.T) {
	st := NewState()
	slot := st.SpawnNode("root", 7)

	require.Equal(t, "root", st.LabelOf(slot))
	lt, ok := st.Lifetimes.Get(slot)
	require.True(t, ok)
	require.Equal(t, 7, lt.CyclesLeft)
	_, ok = st.Hierarchy.IdentityOf(slot)
	require.True(t, ok, "spawned nodes carry an identity immediately")
}

func TestSpawnPrefabBuildsTree(t *testing.T) {
	st := NewState()
	root := st.SpawnPrefab(squadPrefab())

	nodes := st.Nodes()
	require.Len(t, nodes, 4)

	rootID, _ := st.Hierarchy.IdentityOf(root)
	require.Equal(t, rootID, nodes[0].ID, "root minted first, list is id-sorted")
	require.Equal(t, "squad", nodes[0].Label)
	require.Len(t, nodes[0].Children, 2)

	// Children spawn in template order.
	labels := make(map[hierarchy.ID]string, len(nodes))
	for _, n := range nodes {
		labels[n.ID] = n.Label
	}
	require.Equal(t, "leader", labels[nodes[0].Children[0]])
	require.Equal(t, "support", labels[nodes[0].Children[1]])
}

func TestNodesSortedByID(t *testing.T) {
	st := NewState()
	st.SpawnNode("a", 0)
	st.SpawnNode("b", 0)
	st.SpawnNode("c", 0)

	nodes := st.Nodes()
	require.Len(t, nodes, 3)
	for i := 1; i < len(nodes); i++ {
		require.Less(t, nodes[i-1].ID, nodes[i].ID)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	src := NewState()
	src.SpawnPrefab(squadPrefab())
	src.SpawnNode("stray", 9)
	want := src.DigestHex()

	dst := NewState()
	dst.Restore(src.Nodes())

	require.Equal(t, want, dst.DigestHex(), "restore rebuilds the same logical tree")

	// The adopted namespace must not re-mint restored ids.
	maxID := hierarchy.None
	for _, n := range src.Nodes() {
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	slot := dst.SpawnNode("fresh", 0)
	id, _ := dst.Hierarchy.IdentityOf(slot)
	require.Greater(t, id, maxID)
}

func TestDigestStableAcrossSlotReuse(t *testing.T) {
	a := NewState()
	a.SpawnPrefab(squadPrefab())

	b := NewState()
	tmp := b.SpawnNode("scratch", 0)
	b.Hierarchy.DestroyRecursive(tmp)
	b.Hierarchy.Refresh()
	b.SpawnPrefab(squadPrefab())

	require.Equal(t, a.DigestHex(), b.DigestHex())
}
