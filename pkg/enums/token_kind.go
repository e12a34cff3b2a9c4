package enums

import "fmt"

// TokenKind distinguishes the single-use verification flows a temporary token
// can gate. Each kind maps to its own digest/expiry pair on the user record.
type TokenKind string

const (
	TokenKindVerifyEmail   TokenKind = "verify_email"
	TokenKindResetPassword TokenKind = "reset_password"
	TokenKindDeleteAccount TokenKind = "delete_account"
)

var validTokenKinds = []TokenKind{
	TokenKindVerifyEmail,
	TokenKindResetPassword,
	TokenKindDeleteAccount,
}

// String implements fmt.Stringer.
func (t TokenKind) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TokenKind.
func (t TokenKind) IsValid() bool {
	for _, candidate := range validTokenKinds {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTokenKind converts raw input into a TokenKind.
func ParseTokenKind(value string) (TokenKind, error) {
	for _, candidate := range validTokenKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid token kind %q", value)
}
