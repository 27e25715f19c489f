package models

// Order is one participant's kebab configuration inside a group.
// Orders are never edited or removed once appended.
type Order struct {
	// ID is derived from the submission time in Unix milliseconds.
	// It is unique within a group only.
	ID string `json:"id"`

	// Name is the participant's display name or nickname (at most 30 characters).
	Name string `json:"name,omitempty"`

	// Category is the kebab type, one of the menu categories.
	Category string `json:"category"`

	// Size is set only for categories that come in sizes.
	Size string `json:"size,omitempty"`

	// HasCheese is nil unless the category can take cheese.
	HasCheese *bool `json:"hasCheese,omitempty"`

	// Sauce is the selected sauce. Orders written before sauces existed leave it empty.
	Sauce string `json:"sauce,omitempty"`

	// Adds are the selected add-ons. Treated as a set; duplicates carry no meaning.
	Adds []string `json:"adds"`
}

// Cheese reports whether cheese was explicitly requested.
func (o Order) Cheese() bool {
	return o.HasCheese != nil && *o.HasCheese
}
