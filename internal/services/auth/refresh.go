package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"finapi/internal/domain/errs"
	"finapi/internal/domain/models"
	"finapi/internal/storage"

	"github.com/google/uuid"
)

// tokenPrefix makes leaked refresh tokens recognizable in logs and scanners.
const tokenPrefix = "rft_"

const tokenEntropyBytes = 48

type TokenStorage interface {
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID uuid.UUID, revokedAt time.Time, next *models.RefreshToken) error
	RevokeRefreshToken(ctx context.Context, id uuid.UUID, revokedAt time.Time) error
}

// RefreshTokens mints, verifies and rotates opaque refresh tokens. Only the
// keyed hash of a token is persisted; the plaintext is observable exactly
// once, in the return value of Issue and Rotate.
type RefreshTokens struct {
	storage TokenStorage
	secret  []byte
	ttl     time.Duration
}

func NewRefreshTokens(tokenStorage TokenStorage, secret string, ttl time.Duration) *RefreshTokens {
	return &RefreshTokens{
		storage: tokenStorage,
		secret:  []byte(secret),
		ttl:     ttl,
	}
}

// Issue creates a new active refresh token for the user and returns the
// plaintext.
func (r *RefreshTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "auth.RefreshTokens.Issue"

	plain, err := mintOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	record := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: r.hash(plain),
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}

	if err := r.storage.SaveRefreshToken(ctx, record); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return plain, nil
}

// Verify looks up the presented token by its hash and returns the matching
// record. An unknown or expired token is unauthorized; a revoked token is a
// conflict. Revocation is checked before expiry so a replayed token keeps
// signalling conflict even after its lifetime has passed.
func (r *RefreshTokens) Verify(ctx context.Context, plain string) (*models.RefreshToken, error) {
	const op = "auth.RefreshTokens.Verify"

	record, err := r.storage.RefreshTokenByHash(ctx, r.hash(plain))
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidRefreshToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if record.Revoked() {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrRefreshTokenRevoked)
	}

	if record.Expired(time.Now().UTC()) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidRefreshToken)
	}

	return record, nil
}

// Rotate consumes an active record: it mints a successor, revokes the source
// and links the two, all in one storage transaction. The caller must have
// validated the record via Verify first.
func (r *RefreshTokens) Rotate(ctx context.Context, record *models.RefreshToken) (string, error) {
	const op = "auth.RefreshTokens.Rotate"

	plain, err := mintOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	next := &models.RefreshToken{
		ID:        uuid.New(),
		UserID:    record.UserID,
		TokenHash: r.hash(plain),
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}

	if err := r.storage.RotateRefreshToken(ctx, record.ID, now, next); err != nil {
		if errors.Is(err, storage.ErrTokenRevoked) {
			return "", fmt.Errorf("%s: %w", op, errs.ErrRefreshTokenRevoked)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return plain, nil
}

// Revoke terminates a record without a successor, e.g. on logout or when a
// replayed token points at a compromised chain.
func (r *RefreshTokens) Revoke(ctx context.Context, record *models.RefreshToken) error {
	const op = "auth.RefreshTokens.Revoke"

	if err := r.storage.RevokeRefreshToken(ctx, record.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrTokenRevoked) {
			return fmt.Errorf("%s: %w", op, errs.ErrRefreshTokenRevoked)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// hash computes the deterministic keyed hash under which tokens are stored.
func (r *RefreshTokens) hash(plain string) string {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}

func mintOpaqueToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
