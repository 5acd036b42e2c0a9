package component

// Label names a node for scenario addressing, digests, and snapshots.
// Labels are not unique; they are presentation data, not identity.
type Label struct {
	Name string
}
