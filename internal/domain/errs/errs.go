// Package errs defines the domain error taxonomy. Every recoverable failure
// the services raise is an *Error tagged with a Kind; the transport layer
// holds the single Kind-to-status mapping.
package errs

type Kind int

const (
	KindBadRequest Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Meta   map[string]any
}

func (e *Error) Error() string {
	return e.Detail
}

func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// Violation describes one failed password policy rule.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var (
	ErrUsernameTaken = New(KindConflict, "user.username_already_exists", "The username is already taken.")
	ErrEmailTaken    = New(KindConflict, "user.email_already_exists", "The email is already registered.")
	ErrUserNotFound  = New(KindNotFound, "user.not_found", "The requested user does not exist.")

	ErrAuthenticationFailed = New(KindUnauthorized, "auth.authentication_failed", "Invalid username or password.")
	ErrInvalidAccessToken   = New(KindUnauthorized, "auth.token_invalid", "The authentication token is invalid.")

	ErrInvalidRefreshToken = New(KindUnauthorized, "unauthorized", "Invalid refresh token.")
	ErrRefreshTokenRevoked = New(KindConflict, "conflict", "Refresh token has been revoked.")
)

// WeakPassword builds the policy violation error carrying every failed rule.
func WeakPassword(violations []Violation) *Error {
	return &Error{
		Kind:   KindValidation,
		Code:   "auth.password_too_weak",
		Detail: "Password does not meet the strength policy.",
		Meta:   map[string]any{"errors": violations},
	}
}
