package models

// Preset is a saved order template kept on a single device.
// It is not linked to any group and never leaves the device.
type Preset struct {
	ID        string   `json:"id"`
	CreatedAt string   `json:"createdAt"`
	Name      string   `json:"name"`
	UserName  string   `json:"userName,omitempty"`
	KebabType string   `json:"kebabType"`
	KebabSize string   `json:"kebabSize,omitempty"`
	Adds      []string `json:"adds"`
	HasCheese *bool    `json:"hasCheese,omitempty"`
	Sauce     string   `json:"sauce,omitempty"`
}
