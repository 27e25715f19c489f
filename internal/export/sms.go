// Package export renders a group's order list as the text block that gets
// sent to the vendor by SMS.
//
// The output is copied verbatim into a message, so Format is pure and
// deterministic: the same orders always produce the same bytes.
package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mmynk/grouporder/internal/menu"
	"github.com/mmynk/grouporder/internal/models"
)

const (
	// AllAddOnsToken replaces the add-on list when every catalog add-on was selected.
	AllAddOnsToken = "sve"
	// CheeseToken marks an order with cheese inside the add-on clause.
	CheeseToken = "sir"
	// AddOnsLabel introduces the add-on clause.
	AddOnsLabel = "dodaci"
	// AnonymousName is shown for orders without a name.
	AnonymousName = "anonimno"
)

// Format renders one numbered line per order, in list order, joined by newlines.
//
//	1. pecivo, veliki, ljuti, dodaci: luk, rajčica, sir - Ana
func Format(orders []models.Order) string {
	lines := Lines(orders)
	return strings.Join(lines, "\n")
}

// Lines renders each order as its export line.
func Lines(orders []models.Order) []string {
	lines := make([]string, len(orders))
	for i, o := range orders {
		lines[i] = Line(i+1, o)
	}
	return lines
}

// Line renders a single order with the given 1-based position.
// Absent fields are dropped together with their separator.
func Line(n int, o models.Order) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(n))
	b.WriteString(". ")
	b.WriteString(o.Category)
	if o.Size != "" {
		b.WriteString(", ")
		b.WriteString(o.Size)
	}
	if o.Sauce != "" {
		b.WriteString(", ")
		b.WriteString(o.Sauce)
	}
	if extras := addOnClause(o); len(extras) > 0 {
		b.WriteString(", ")
		b.WriteString(AddOnsLabel)
		b.WriteString(": ")
		b.WriteString(strings.Join(extras, ", "))
	}
	if name := strings.TrimSpace(o.Name); name != "" {
		b.WriteString(" - ")
		b.WriteString(name)
	}
	return b.String()
}

// addOnClause lists the add-ons in catalog order, or the "all" token, followed by cheese.
func addOnClause(o models.Order) []string {
	var extras []string
	if len(o.Adds) > 0 {
		if menu.HasAllAddOns(o.Adds) {
			extras = append(extras, AllAddOnsToken)
		} else {
			extras = append(extras, canonical(o.Adds)...)
		}
	}
	if o.Cheese() {
		extras = append(extras, CheeseToken)
	}
	return extras
}

// canonical de-duplicates adds and sorts them by catalog position.
// Add-ons missing from the catalog keep their stored order after the known ones.
func canonical(adds []string) []string {
	seen := make(map[string]bool, len(adds))
	out := make([]string, 0, len(adds))
	for _, a := range adds {
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	return out
}

var unknownRank = len(menu.AddOns())

func rank(a string) int {
	if r := menu.AddOnRank(a); r >= 0 {
		return r
	}
	return unknownRank
}

// DisplayName returns the participant name shown in the order list.
func DisplayName(o models.Order) string {
	if name := strings.TrimSpace(o.Name); name != "" {
		return name
	}
	return AnonymousName
}

// Initial returns the upper-cased first letter of the display name, used for avatars.
func Initial(o models.Order) string {
	for _, r := range DisplayName(o) {
		return strings.ToUpper(string(r))
	}
	return ""
}
