package core

import "strings"

// The category registry is a fixed mapping from category name to display
// glyph. Stored categories are not constrained to this set; anything
// unknown falls back to the Other glyph.

const defaultIcon = "📌"

var categoryIcons = map[string]string{
	"food":          "🍔",
	"shopping":      "🛒",
	"transport":     "🚗",
	"entertainment": "🎬",
	"bills":         "📄",
	"health":        "💊",
	"income":        "💰",
	"other":         defaultIcon,
}

// categoryNames keeps the display order used by the submission form.
var categoryNames = []string{
	"Food", "Shopping", "Transport", "Entertainment",
	"Bills", "Health", "Income", "Other",
}

// IconFor resolves a category name to its glyph, case-insensitively.
// Unknown, empty or garbage input returns the Other glyph.
func IconFor(name string) string {
	if icon, ok := categoryIcons[strings.ToLower(strings.TrimSpace(name))]; ok {
		return icon
	}
	return defaultIcon
}

// Categories returns the known category names in display order.
func Categories() []string {
	out := make([]string, len(categoryNames))
	copy(out, categoryNames)
	return out
}
