package hierarchy

// ID is the stable, recyclable identity a node keeps across slot
// destruction and recreation. Relations between nodes are stored as IDs,
// never as raw slot handles, so a rollback that rebuilds the slot pool
// cannot sever the tree. The zero ID is reserved and never allocated.
type ID uint32

// None is the reserved zero ID, meaning "no identity".
const None ID = 0

// Identity is the marker carrying a node's stable id. It is attached the
// first time a slot participates in any hierarchy operation and is
// read-only outside this package.
type Identity struct {
	ID ID
}

// Parent is attached to a node that has a parent and names it by stable
// id. Absence of the marker means the node is a root.
type Parent struct {
	ID ID
}

// Children is attached to a node with at least one child. IDs is ordered
// (insertion order is iteration order) and duplicate-free. The marker is
// removed entirely when its last element goes; it never exists empty.
type Children struct {
	IDs []ID
}

// Sequence returns the ordered child ids. Callers must not mutate it.
func (c *Children) Sequence() []ID {
	return c.IDs
}

func (c *Children) Len() int {
	return len(c.IDs)
}

func (c *Children) Contains(id ID) bool {
	for _, v := range c.IDs {
		if v == id {
			return true
		}
	}
	return false
}
