package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a refresh token record stored in the database.
// Only the HMAC of the opaque token is persisted, never the plaintext.
type RefreshToken struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	TokenHash    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	ReplacedByID *uuid.UUID
}

// Revoked reports whether the record has been consumed by rotation or an
// explicit revoke. A revoked record is terminal.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the record is past its lifetime at the given
// instant. Expiry is derived, not stored: valid only while now < ExpiresAt.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
