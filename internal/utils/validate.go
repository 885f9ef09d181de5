package utils

import (
	"regexp"  // Regular expressions
	"unicode" // Rune classes
)

var (
	namePattern       = regexp.MustCompile(`^[\p{L}][\p{L}\s'\-]*$`) // Letters, spaces, apostrophes, hyphens
	postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{1,9}$`)
)

// IsValidName checks that a person name holds only letters and separators
func IsValidName(name string) bool {
	return len(name) <= 50 && namePattern.MatchString(name)
}

// IsValidPhone checks the number has 7 to 15 digits once formatting is removed
func IsValidPhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '-' || r == '+' || r == '(' || r == ')' || r == '.':
			// Formatting characters
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// IsValidPostalCode checks a loose international postal code shape
func IsValidPostalCode(code string) bool {
	return postalCodePattern.MatchString(code)
}

// Contains reports whether value is one of allowed
func Contains(allowed []string, value string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
