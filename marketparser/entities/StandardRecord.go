package entities

// Currency is the only currency the market publishes prices in.
const Currency = "npr"

// StandardRecord is the normalized, English-keyed form of one commodity row.
type StandardRecord struct {
	NepaliName  string  `json:"nepali_name"`
	EnglishName string  `json:"english_name"`
	Minimum     float64 `json:"minimum"`
	Maximum     float64 `json:"maximum"`
	Average     float64 `json:"average"`
	UnitType    string  `json:"unit_type"`
	UnitNepali  string  `json:"unit_nepali"`
	Currency    string  `json:"currency"`
}

// NewStandardRecord returns a record with every field at its default.
func NewStandardRecord() StandardRecord {
	return StandardRecord{
		UnitType: "kg",
		Currency: Currency,
	}
}

// ProductMapping maps a Nepali product name to its English name.
// An empty value means the product has not been translated yet.
type ProductMapping map[string]string
