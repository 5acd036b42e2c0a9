package hierarchy

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/keelsim/keel/internal/core/ecs"
)

// Digest returns a BLAKE2b-256 digest of the whole tree, independent of
// slot handles: nodes are visited in stable-id order and hashed as
// (id, label, parent id, ordered children ids). Two worlds with the same
// logical hierarchy digest identically even when their slot pools differ,
// which is what makes the digest usable as a determinism check across
// rollback and re-simulation.
func (e *Engine) Digest(labelOf func(slot ecs.EntityID) string) []byte {
	type node struct {
		id   ID
		slot ecs.EntityID
	}
	nodes := make([]node, 0, e.idents.Len())
	e.idents.Each(func(slot ecs.EntityID, ident *Identity) {
		nodes = append(nodes, node{id: ident.ID, slot: slot})
	})
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].id < nodes[j].id })

	h, _ := blake2b.New256(nil)
	var u32 [4]byte
	writeID := func(id ID) {
		binary.LittleEndian.PutUint32(u32[:], uint32(id))
		h.Write(u32[:])
	}
	for _, n := range nodes {
		writeID(n.id)
		label := labelOf(n.slot)
		binary.LittleEndian.PutUint32(u32[:], uint32(len(label)))
		h.Write(u32[:])
		h.Write([]byte(label))
		parent := None
		if p, ok := e.parents.Get(n.slot); ok {
			parent = p.ID
		}
		writeID(parent)
		children := e.ChildrenOf(n.slot)
		binary.LittleEndian.PutUint32(u32[:], uint32(len(children)))
		h.Write(u32[:])
		for _, c := range children {
			writeID(c)
		}
	}
	return h.Sum(nil)
}
