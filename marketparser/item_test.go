package marketparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		product     string
		unitNepali  string
		unitEnglish string
	}{
		{"unit suffix", "आलु (के.जी.)", "आलु", "के.जी.", "kg"},
		{"no unit", "गोलभेडा ठुलो", "गोलभेडा ठुलो", "", "kg"},
		{"outer whitespace", "  केरा (दर्जन)  ", "केरा", "दर्जन", "dozen"},
		{"inner whitespace", "काउली स्थानिय ( गोटा )", "काउली स्थानिय", "गोटा", "pcs"},
		{"unknown unit", "दूध (लिटर)", "दूध", "लिटर", "kg"},
		{"parenthesis not at end", "आलु (रातो) ताजा", "आलु (रातो) ताजा", "", "kg"},
		{"last group wins", "च्याउ (कन्य) (के.जी.)", "च्याउ (कन्य)", "के.जी.", "kg"},
		{"empty", "", "", "", "kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product, unitNepali, unitEnglish := ParseItem(tt.text)
			assert.Equal(t, tt.product, product)
			assert.Equal(t, tt.unitNepali, unitNepali)
			assert.Equal(t, tt.unitEnglish, unitEnglish)
		})
	}
}

func TestProductName(t *testing.T) {
	assert.Equal(t, "आलु रातो", ProductName("आलु रातो (के.जी.)"))
}
