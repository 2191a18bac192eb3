package aggregate

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"infinite-experiment/logbook/internal/models"
)

// nameOrder compares pilots by display name using English collation, falling
// back to the id so the order is total. A collator keeps scratch buffers, so
// each caller gets its own.
func nameOrder() func(a, b models.PilotRecord) int {
	c := collate.New(language.English)
	return func(a, b models.PilotRecord) int {
		if n := c.CompareString(a.Name, b.Name); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	}
}

// SortPilots orders pilots by display name in place.
func SortPilots(pilots []models.PilotRecord) {
	slices.SortStableFunc(pilots, nameOrder())
}

// IsSorted reports whether pilots are already in display-name order.
func IsSorted(pilots []models.PilotRecord) bool {
	return slices.IsSortedFunc(pilots, nameOrder())
}
