package menu

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mmynk/grouporder/internal/models"
)

// Field names a draft input that failed validation.
type Field string

const (
	FieldName     Field = "name"
	FieldCategory Field = "category"
	FieldSize     Field = "size"
	FieldSauce    Field = "sauce"
	FieldAdds     Field = "adds"
)

// ValidationError reports the first draft field that blocks submission.
type ValidationError struct {
	Field  Field
	Reason string
	// Message is the text shown to the participant next to the offending input.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var prompts = map[Field]string{
	FieldName:     "Molimo unesite ime.",
	FieldCategory: "Molimo odaberite vrstu kebaba.",
	FieldSize:     "Molimo odaberite veličinu.",
	FieldSauce:    "Molimo odaberite umak.",
	FieldAdds:     "Odabrani dodatak ne postoji.",
}

// Prompt returns the text asking the participant to fix field.
func Prompt(field Field) string {
	return prompts[field]
}

func invalid(field Field, reason, message string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Message: message}
}

// Draft is the order form before submission.
// Use SetCategory rather than assigning Category so dependent fields stay consistent.
type Draft struct {
	Name      string
	Category  string
	Size      string
	HasCheese bool
	Sauce     string
	Adds      []string
}

// SetCategory changes the kebab type and clears options the new type does not take.
func (d *Draft) SetCategory(category string) {
	d.Category = category
	d.Normalize()
}

// Normalize drops a size or cheese selection that the current category does not allow.
func (d *Draft) Normalize() {
	if !RequiresSize(d.Category) {
		d.Size = ""
	}
	if !AllowsCheese(d.Category) {
		d.HasCheese = false
	}
}

// ToggleAdd selects or deselects a single add-on.
func (d *Draft) ToggleAdd(addOn string) {
	for i, a := range d.Adds {
		if a == addOn {
			d.Adds = append(d.Adds[:i:i], d.Adds[i+1:]...)
			return
		}
	}
	d.Adds = append(d.Adds, addOn)
}

// ToggleAllAdds selects the whole catalog, or clears the selection when everything is already selected.
func (d *Draft) ToggleAllAdds() {
	if HasAllAddOns(d.Adds) {
		d.Adds = nil
		return
	}
	d.Adds = AddOns()
}

// Reset clears the form after a successful submission.
func (d *Draft) Reset() {
	*d = Draft{}
}

// Validate checks the draft in form order and returns the first problem found.
func (d Draft) Validate() error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return invalid(FieldName, "name is required", Prompt(FieldName))
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return invalid(FieldName, fmt.Sprintf("name exceeds %d characters", MaxNameLength),
			fmt.Sprintf("Ime može imati najviše %d znakova.", MaxNameLength))
	}
	if d.Category == "" {
		return invalid(FieldCategory, "category is required", Prompt(FieldCategory))
	}
	if !IsCategory(d.Category) {
		return invalid(FieldCategory, fmt.Sprintf("unknown category %q", d.Category), Prompt(FieldCategory))
	}
	if RequiresSize(d.Category) {
		if d.Size == "" {
			return invalid(FieldSize, "size is required", Prompt(FieldSize))
		}
		if !IsSize(d.Size) {
			return invalid(FieldSize, fmt.Sprintf("unknown size %q", d.Size), Prompt(FieldSize))
		}
	}
	if d.Sauce == "" {
		return invalid(FieldSauce, "sauce is required", Prompt(FieldSauce))
	}
	if !IsSauce(d.Sauce) {
		return invalid(FieldSauce, fmt.Sprintf("unknown sauce %q", d.Sauce), Prompt(FieldSauce))
	}
	for _, a := range d.Adds {
		if !IsAddOn(a) {
			return invalid(FieldAdds, fmt.Sprintf("unknown add-on %q", a), Prompt(FieldAdds))
		}
	}
	return nil
}

// Order validates the draft and builds the order to append.
// Size is left empty when the category has no sizes, HasCheese is nil when the
// category cannot take cheese, and repeated add-ons are dropped.
func (d Draft) Order(id string) (models.Order, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		ID:       id,
		Name:     strings.TrimSpace(d.Name),
		Category: d.Category,
		Sauce:    d.Sauce,
		Adds:     dedupe(d.Adds),
	}
	if RequiresSize(d.Category) {
		order.Size = d.Size
	}
	if AllowsCheese(d.Category) {
		cheese := d.HasCheese
		order.HasCheese = &cheese
	}
	return order, nil
}

// DraftFromOrder loads an order back into the form, e.g. when repeating a saved configuration.
func DraftFromOrder(o models.Order) Draft {
	d := Draft{
		Name:      o.Name,
		Category:  o.Category,
		Size:      o.Size,
		HasCheese: o.Cheese(),
		Sauce:     o.Sauce,
		Adds:      append([]string(nil), o.Adds...),
	}
	d.Normalize()
	return d
}

// HasAllAddOns reports whether adds is exactly the full catalog: every catalog
// add-on is present and, after removing repeats, nothing else is.
func HasAllAddOns(adds []string) bool {
	unique := dedupe(adds)
	if len(unique) != len(addOns) {
		return false
	}
	for _, a := range addOns {
		if !contains(unique, a) {
			return false
		}
	}
	return true
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, v := range list {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
