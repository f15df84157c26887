package enums

import "fmt"

// SortKey selects the catalog ordering applied by the backend.
type SortKey string

const (
	SortDefault      SortKey = "default"
	SortPriceLowHigh SortKey = "priceLowHigh"
	SortPriceHighLow SortKey = "priceHighLow"
	SortNewest       SortKey = "newest"
)

var validSortKeys = []SortKey{
	SortDefault,
	SortPriceLowHigh,
	SortPriceHighLow,
	SortNewest,
}

// String implements fmt.Stringer.
func (s SortKey) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SortKey.
func (s SortKey) IsValid() bool {
	for _, candidate := range validSortKeys {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsDefault reports whether the backend should apply its own ordering.
func (s SortKey) IsDefault() bool {
	return s == "" || s == SortDefault
}

// ParseSortKey converts raw input into a SortKey. Empty input yields SortDefault.
func ParseSortKey(value string) (SortKey, error) {
	if value == "" {
		return SortDefault, nil
	}
	for _, candidate := range validSortKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}
