package hierarchy

// Hierarchy facts emitted on the event bus. Emitted in the cycle the
// mutation applies, visible to subscribers the following cycle (bus
// double-buffering).

// NodeSpawned is emitted when a labeled node enters the world with a
// freshly minted identity.
type NodeSpawned struct {
	Node  ID
	Label string
}

// ChildAdded is emitted when a child is attached to a parent it was not
// already under.
type ChildAdded struct {
	Parent ID
	Child  ID
}

// ChildRemoved is emitted when a child leaves a parent's ordered list and
// becomes a root.
type ChildRemoved struct {
	Parent ID
	Child  ID
}

// ParentCleared is emitted when a node's parent marker is stripped
// directly (remove_parent), naming the former parent.
type ParentCleared struct {
	Child  ID
	Former ID
}

// SubtreeDestroyed is emitted after a recursive destroy completes. Nodes
// counts every slot destroyed, the root included.
type SubtreeDestroyed struct {
	Root  ID
	Nodes int
}
