package types

import "strings"

// Address is the postal address stored on a user profile.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no field is populated.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.Country) == ""
}

// String joins the populated parts on one line, suitable as a shipping address.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, part := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
