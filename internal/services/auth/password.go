package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"finapi/internal/domain/errs"
)

const minPasswordLength = 8

const specialChars = `!@#$%^&*()-_=+[]{}|;:'",.<>?/`

// ValidatePassword checks the password against the strength policy and
// reports every violated rule at once, so a client can show the full list
// of remaining requirements in a single round-trip.
func ValidatePassword(password string) error {
	var violations []errs.Violation
	add := func(reason string) {
		violations = append(violations, errs.Violation{Field: "password", Reason: reason})
	}

	if utf8.RuneCountInString(password) < minPasswordLength {
		add("Must be at least 8 characters long.")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}

	if !hasUpper {
		add("Must include at least one uppercase letter.")
	}
	if !hasLower {
		add("Must include at least one lowercase letter.")
	}
	if !hasDigit {
		add("Must include at least one digit.")
	}
	if !hasSpecial {
		add("Must include at least one special character.")
	}

	if len(violations) > 0 {
		return errs.WeakPassword(violations)
	}
	return nil
}
