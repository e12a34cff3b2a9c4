package enums

import "fmt"

// OfferIssuerRole labels who put a promotional offer out.
type OfferIssuerRole string

const (
	OfferIssuerSeller OfferIssuerRole = "seller"
	OfferIssuerBrand  OfferIssuerRole = "brand"
)

var validOfferIssuerRoles = []OfferIssuerRole{
	OfferIssuerSeller,
	OfferIssuerBrand,
}

// String implements fmt.Stringer.
func (o OfferIssuerRole) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OfferIssuerRole.
func (o OfferIssuerRole) IsValid() bool {
	for _, candidate := range validOfferIssuerRoles {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOfferIssuerRole converts raw input into an OfferIssuerRole.
func ParseOfferIssuerRole(value string) (OfferIssuerRole, error) {
	for _, candidate := range validOfferIssuerRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer issuer role %q", value)
}
