package component

// Lifetime marks a transient node. CyclesLeft counts down once per cycle;
// at zero the node is destroyed, recursively when it sits in the
// hierarchy. Absence of the marker means the node is permanent.
type Lifetime struct {
	CyclesLeft int
}
