// Package menu holds the vendor's item catalog and the rules deciding which
// options apply to which kebab type.
package menu

// Kebab types.
const (
	CategoryPecivo        = "pecivo"
	CategoryTortilja      = "tortilja"
	CategoryVegetarian    = "vegetarijanski"
	CategoryTortillaSalad = "tortilja mix salata"
)

// Sizes.
const (
	SizeSmall = "mali"
	SizeLarge = "veliki"
)

// MaxNameLength is the longest accepted participant name, in characters.
const MaxNameLength = 30

var (
	categories = []string{CategoryPecivo, CategoryTortilja, CategoryVegetarian, CategoryTortillaSalad}
	sizes      = []string{SizeSmall, SizeLarge}
	sauces     = []string{
		"ljuti",
		"ljuti (malo manje)",
		"blagi",
		"blagi (malo manje)",
		"mix",
		"mix (malo manje)",
	}
	// addOns is in canonical order; exports enumerate add-ons in this order.
	addOns = []string{"luk", "rajčica", "zelena salata", "kupus", "kukuruz", "krastavci"}

	sizeExempt     = map[string]bool{CategoryVegetarian: true, CategoryTortillaSalad: true}
	cheeseEligible = map[string]bool{CategoryPecivo: true, CategoryTortilja: true}
)

// Categories returns the kebab types in menu order.
func Categories() []string { return clone(categories) }

// Sizes returns the available sizes.
func Sizes() []string { return clone(sizes) }

// Sauces returns the available sauces.
func Sauces() []string { return clone(sauces) }

// AddOns returns the add-on catalog in canonical order.
func AddOns() []string { return clone(addOns) }

// SizeExempt returns the categories that are sold in a single size.
func SizeExempt() []string { return filter(categories, func(c string) bool { return sizeExempt[c] }) }

// CheeseEligible returns the categories that can take cheese.
func CheeseEligible() []string {
	return filter(categories, func(c string) bool { return cheeseEligible[c] })
}

// IsCategory reports whether c is a known kebab type.
func IsCategory(c string) bool { return contains(categories, c) }

// IsSize reports whether s is a known size.
func IsSize(s string) bool { return contains(sizes, s) }

// IsSauce reports whether s is a known sauce.
func IsSauce(s string) bool { return contains(sauces, s) }

// IsAddOn reports whether a is in the add-on catalog.
func IsAddOn(a string) bool { return AddOnRank(a) >= 0 }

// AddOnRank returns the canonical position of a, or -1 for unknown add-ons.
func AddOnRank(a string) int {
	for i, v := range addOns {
		if v == a {
			return i
		}
	}
	return -1
}

// RequiresSize reports whether a size must be chosen for the category.
// An empty or unknown category requires nothing, since no size selector is shown for it.
func RequiresSize(category string) bool {
	return IsCategory(category) && !sizeExempt[category]
}

// AllowsCheese reports whether the category can take cheese.
func AllowsCheese(category string) bool {
	return cheeseEligible[category]
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func clone(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}

func filter(list []string, keep func(string) bool) []string {
	var out []string
	for _, v := range list {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
