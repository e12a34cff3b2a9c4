package enums

import "fmt"

// AddressLabel names the slot an address occupies on a user profile.
type AddressLabel string

const (
	AddressLabelPrimary   AddressLabel = "primary"
	AddressLabelSecondary AddressLabel = "secondary"
	AddressLabelWork      AddressLabel = "work"
	AddressLabelHome      AddressLabel = "home"
)

var validAddressLabels = []AddressLabel{
	AddressLabelPrimary,
	AddressLabelSecondary,
	AddressLabelWork,
	AddressLabelHome,
}

// String implements fmt.Stringer.
func (a AddressLabel) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AddressLabel.
func (a AddressLabel) IsValid() bool {
	for _, candidate := range validAddressLabels {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAddressLabel converts raw input into an AddressLabel.
func ParseAddressLabel(value string) (AddressLabel, error) {
	for _, candidate := range validAddressLabels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid address label %q", value)
}
