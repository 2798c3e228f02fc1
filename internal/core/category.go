package core

import (
	"strings"
	"unicode"
)

const (
	CategoryFood          = "Food & Dining"
	CategoryTransport     = "Transportation"
	CategoryShopping      = "Shopping"
	CategoryBills         = "Bills & Utilities"
	CategoryEntertainment = "Entertainment"
	CategoryHealth        = "Health"
	CategoryOther         = "Other"
)

// Categories lists the fixed categories in display order.
var Categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryEntertainment,
	CategoryHealth,
	CategoryOther,
}

var categoryIndex = func() map[string]string {
	idx := make(map[string]string, len(Categories))
	for _, c := range Categories {
		idx[categoryKey(c)] = c
	}
	return idx
}()

// categoryKey lowercases and drops all whitespace, so "food&dining",
// "Food  & Dining" and "FOOD & DINING" share a key.
func categoryKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// NormalizeCategory returns the canonical spelling of a known category.
// Unknown input is returned trimmed with ok=false.
func NormalizeCategory(s string) (string, bool) {
	if c, ok := categoryIndex[categoryKey(s)]; ok {
		return c, true
	}
	return strings.TrimSpace(s), false
}

// categoryOrder is the display rank of a category; unknown ones sort last.
func categoryOrder(name string) int {
	for i, c := range Categories {
		if c == name {
			return i
		}
	}
	return len(Categories)
}
