package marketparser

import (
	"regexp"
	"strings"
)

// unitSuffixRegex matches a parenthesized unit anchored at the end of the item text.
var unitSuffixRegex = regexp.MustCompile(`\(([^)]+)\)$`)

// ParseItem splits raw item text such as "आलु रातो (के.जी.)" into the product
// name, the Nepali unit phrase and the English unit.
func ParseItem(text string) (product, unitNepali, unitEnglish string) {
	clean := strings.TrimSpace(text)

	loc := unitSuffixRegex.FindStringSubmatchIndex(clean)
	if loc == nil {
		return clean, "", DefaultUnit
	}

	unitNepali = strings.TrimSpace(clean[loc[2]:loc[3]])
	product = strings.TrimSpace(clean[:loc[0]])
	return product, unitNepali, TranslateUnit(unitNepali)
}

// ProductName returns only the product part of the item text.
func ProductName(text string) string {
	product, _, _ := ParseItem(text)
	return product
}
