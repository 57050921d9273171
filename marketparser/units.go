// Package marketparser provides functionality for downloading and parsing the Kalimati market price table.
package marketparser

import "strings"

// DefaultUnit is used when a unit phrase is missing or not recognized.
const DefaultUnit = "kg"

type unitVariant struct {
	nepali  string
	english string
}

// unitVariants is checked top to bottom and the first substring match wins.
// Longer spellings of the same unit come before their prefixes.
var unitVariants = []unitVariant{
	{"के.जी.", "kg"},
	{"के.जी", "kg"},
	{"केजी", "kg"},
	{"के जी", "kg"},
	{"किलो", "kg"},
	{"गोटा", "pcs"},
	{"पिस", "pcs"},
	{"दर्जन.", "dozen"},
	{"दर्जन", "dozen"},
	{"मुठा", "mutha"},
	{"बन्डल", "bundle"},
	{"बोरा", "sack"},
	{"क्रेट", "crate"},
}

// TranslateUnit maps a Nepali unit phrase to its English token.
func TranslateUnit(phrase string) string {
	for _, v := range unitVariants {
		if strings.Contains(phrase, v.nepali) {
			return v.english
		}
	}
	return DefaultUnit
}

// KnownUnits returns the closed English unit vocabulary.
func KnownUnits() []string {
	seen := make(map[string]bool)
	units := make([]string, 0, len(unitVariants))
	for _, v := range unitVariants {
		if !seen[v.english] {
			seen[v.english] = true
			units = append(units, v.english)
		}
	}
	return units
}

// IsKnownUnit reports whether unit belongs to the English vocabulary.
func IsKnownUnit(unit string) bool {
	for _, v := range unitVariants {
		if v.english == unit {
			return true
		}
	}
	return false
}
