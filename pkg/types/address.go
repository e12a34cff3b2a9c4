package types

import (
	"strings"

	"github.com/bazaarly/bazaarly-backend/pkg/enums"
)

// Address is the shipping/profile address attached to a user. Orders copy it
// verbatim at creation time so later profile edits cannot rewrite history.
type Address struct {
	Label   enums.AddressLabel `json:"label"`
	Street  string             `json:"street"`
	City    string             `json:"city"`
	State   string             `json:"state"`
	Pin     string             `json:"pin"`
	Country string             `json:"country"`
}

// IsZero reports whether no address field has been set.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.Pin) == "" &&
		strings.TrimSpace(a.Country) == ""
}

// Normalize fills the default label when none was provided.
func (a Address) Normalize() Address {
	if !a.Label.IsValid() {
		a.Label = enums.AddressLabelHome
	}
	return a
}
