package valueobject

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Phone is a value object for a Kenyan mobile number in canonical local
// format ("07XXXXXXXX" / "01XXXXXXXX"). Inbound mobile-money notifications
// carry MSISDNs in several shapes ("+2547...", "2547...", "07...") and all
// of them must normalize to the same canonical value before matching.
type Phone struct {
	local string
}

// ErrInvalidPhone is returned when a phone number cannot be normalized
var ErrInvalidPhone = errors.New("invalid phone number")

const countryCode = "254"

// NewPhone normalizes a raw phone number string into a canonical Phone.
// Accepted inputs: "+254712345678", "254712345678", "0712345678",
// "712345678", with optional spaces or dashes.
func NewPhone(raw string) (Phone, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	if digits == "" {
		return Phone{}, ErrInvalidPhone
	}

	// Strip country code if present
	if strings.HasPrefix(digits, countryCode) {
		digits = digits[len(countryCode):]
	}
	// Canonical local format carries a leading zero
	if !strings.HasPrefix(digits, "0") {
		digits = "0" + digits
	}

	if len(digits) != 10 {
		return Phone{}, fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return Phone{local: digits}, nil
}

// PhoneFromCanonical rehydrates a Phone from a value already stored in
// canonical local format. No validation is applied; use NewPhone for any
// user- or gateway-supplied input.
func PhoneFromCanonical(local string) Phone {
	return Phone{local: local}
}

// Local returns the canonical local format ("07XXXXXXXX")
func (p Phone) Local() string {
	return p.local
}

// MSISDN returns the international format without "+" ("2547XXXXXXXX"),
// which is what the Daraja API expects.
func (p Phone) MSISDN() string {
	return countryCode + strings.TrimPrefix(p.local, "0")
}

// IsZero returns true if the phone has no value
func (p Phone) IsZero() bool {
	return p.local == ""
}

// String returns the canonical local format
func (p Phone) String() string {
	return p.local
}

// Equals returns true if both phones normalize to the same number
func (p Phone) Equals(other Phone) bool {
	return p.local == other.local
}
