package auth

import (
	"errors"
	"testing"

	"finapi/internal/domain/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policyViolations(t *testing.T, err error) []errs.Violation {
	t.Helper()

	var domainErr *errs.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, errs.KindValidation, domainErr.Kind)
	require.Equal(t, "auth.password_too_weak", domainErr.Code)

	violations, ok := domainErr.Meta["errors"].([]errs.Violation)
	require.True(t, ok)
	return violations
}

func TestValidatePassword_Valid(t *testing.T) {
	for _, password := range []string{
		"Str0ngPassw0rd!",
		"Aa1!aaaa",
		`Pa55word,`,
		"xX9?xxxxxxxxxxxxxxxxxxxxxxxx",
	} {
		assert.NoError(t, ValidatePassword(password), password)
	}
}

func TestValidatePassword_SingleMissingClass(t *testing.T) {
	tests := []struct {
		name     string
		password string
		reason   string
	}{
		{"too short", "Aa1!xyz", "Must be at least 8 characters long."},
		{"no uppercase", "weak1pass!", "Must include at least one uppercase letter."},
		{"no lowercase", "WEAK1PASS!", "Must include at least one lowercase letter."},
		{"no digit", "WeakPass!", "Must include at least one digit."},
		{"no special", "WeakPass1", "Must include at least one special character."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			require.Error(t, err)

			violations := policyViolations(t, err)
			require.Len(t, violations, 1)
			assert.Equal(t, "password", violations[0].Field)
			assert.Equal(t, tt.reason, violations[0].Reason)
		})
	}
}

func TestValidatePassword_CollectsAllViolations(t *testing.T) {
	// Violates every rule at once.
	err := ValidatePassword("")
	require.Error(t, err)

	violations := policyViolations(t, err)
	assert.Len(t, violations, 5)

	reasons := make([]string, 0, len(violations))
	for _, v := range violations {
		reasons = append(reasons, v.Reason)
	}
	assert.Contains(t, reasons, "Must be at least 8 characters long.")
	assert.Contains(t, reasons, "Must include at least one uppercase letter.")
	assert.Contains(t, reasons, "Must include at least one lowercase letter.")
	assert.Contains(t, reasons, "Must include at least one digit.")
	assert.Contains(t, reasons, "Must include at least one special character.")
}

func TestValidatePassword_NotWeakPasswordSentinel(t *testing.T) {
	err := ValidatePassword("short")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrAuthenticationFailed))
}
