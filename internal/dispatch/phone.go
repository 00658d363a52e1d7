package dispatch

import (
	"strings"

	"github.com/Dan9191/fee-service/internal/models"
)

// LocalNumberLength is the length of a national mobile number.
const LocalNumberLength = 10

// NormalizePhone converts a stored contact number into the international
// digit form (country code + national number, no plus sign). Separators,
// spaces and a leading "+" or "0" trunk prefix are ignored. A national
// number must have LocalNumberLength digits and start with 6-9.
func NormalizePhone(raw, countryCode string) (string, error) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return "", &models.ValidationError{Field: "contact_number", Reason: "missing"}
	}

	switch {
	case len(digits) == LocalNumberLength+1 && digits[0] == '0':
		digits = digits[1:]
	case len(digits) == len(countryCode)+LocalNumberLength && strings.HasPrefix(digits, countryCode):
		if isMobile(digits[len(countryCode):]) {
			return digits, nil
		}
		return "", &models.ValidationError{Field: "contact_number", Reason: "not a mobile number"}
	}

	if len(digits) == LocalNumberLength && isMobile(digits) {
		return countryCode + digits, nil
	}
	return "", &models.ValidationError{Field: "contact_number", Reason: "unexpected length or prefix"}
}

func isMobile(national string) bool {
	if len(national) != LocalNumberLength {
		return false
	}
	return national[0] >= '6' && national[0] <= '9'
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
