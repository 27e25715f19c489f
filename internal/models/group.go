package models

// Group is a shared, link-addressable order list.
// Participants open the group through its ID and append their orders to it.
type Group struct {
	// ID is the opaque identifier assigned by the store on creation (UUID format).
	// It never changes once the group exists.
	ID string `json:"id"`

	// CreatedAt is the creation time in Unix milliseconds.
	CreatedAt int64 `json:"createdAt"`

	// Orders is the shared list, in insertion order.
	// Position in this slice is what numbers the lines of the export.
	Orders []Order `json:"orders"`

	// Revision is the store's concurrency token for the current Orders.
	// Its format depends on the backend (row version, ETag, ...) and it is
	// only meaningful when passed back to the same backend.
	Revision string `json:"-"`
}

// OrderIDs returns the set of order IDs already present in the group.
func (g *Group) OrderIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Orders))
	for _, o := range g.Orders {
		ids[o.ID] = true
	}
	return ids
}
