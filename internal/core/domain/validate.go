package domain

import "regexp"

// Phone numbers are E.164-ish: optional +, 10 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// The PIN is exactly 4 digits.
var pinRegex = regexp.MustCompile(`^[0-9]{4}$`)

// ValidPhoneNumber checks the registration phone format before the
// uniqueness lookup runs.
func ValidPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// ValidPIN checks that the authorization secret is a 4-digit code.
func ValidPIN(pin string) bool {
	return pinRegex.MatchString(pin)
}
