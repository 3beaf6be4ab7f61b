package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"finapi/internal/config"
	"finapi/internal/domain/errs"
	"finapi/internal/domain/models"
	"finapi/internal/lib/jwt"
	"finapi/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Str0ngPassw0rd!"

type fakeStorage struct {
	users  map[uuid.UUID]*models.User
	tokens map[uuid.UUID]*models.RefreshToken
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:  make(map[uuid.UUID]*models.User),
		tokens: make(map[uuid.UUID]*models.RefreshToken),
	}
}

func (f *fakeStorage) SaveUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Username == user.Username {
			return storage.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return storage.ErrEmailTaken
		}
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeStorage) UserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			clone := *u
			return &clone, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStorage) UserByID(_ context.Context, userID uuid.UUID) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeStorage) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStorage) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStorage) SaveRefreshToken(_ context.Context, token *models.RefreshToken) error {
	for _, t := range f.tokens {
		if t.TokenHash == token.TokenHash {
			return storage.ErrTokenHashCollision
		}
	}
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeStorage) RefreshTokenByHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash {
			clone := *t
			return &clone, nil
		}
	}
	return nil, storage.ErrTokenNotFound
}

func (f *fakeStorage) RotateRefreshToken(ctx context.Context, oldID uuid.UUID, revokedAt time.Time, next *models.RefreshToken) error {
	old, ok := f.tokens[oldID]
	if !ok || old.RevokedAt != nil {
		return storage.ErrTokenRevoked
	}
	if err := f.SaveRefreshToken(ctx, next); err != nil {
		return err
	}
	old.RevokedAt = &revokedAt
	old.ReplacedByID = &next.ID
	return nil
}

func (f *fakeStorage) RevokeRefreshToken(_ context.Context, id uuid.UUID, revokedAt time.Time) error {
	old, ok := f.tokens[id]
	if !ok || old.RevokedAt != nil {
		return storage.ErrTokenRevoked
	}
	old.RevokedAt = &revokedAt
	return nil
}

func newTestAuth(t *testing.T, store *fakeStorage, refreshTTL time.Duration, rotate bool) *Auth {
	t.Helper()

	codec, err := jwt.NewCodec(config.JWTConfig{
		Secret:    "test-secret",
		Algorithm: "HS256",
		Issuer:    "finance_api",
		Audience:  "finance_api_users",
		AccessTTL: time.Hour,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := NewRefreshTokens(store, "test-secret", refreshTTL)

	return New(logger, store, tokens, codec, rotate)
}

func registerTestUser(t *testing.T, a *Auth) *models.User {
	t.Helper()

	user, err := a.Register(context.Background(),
		gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Username(), gofakeit.Email(),
		strongPassword)
	require.NoError(t, err)
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	user, err := a.Register(context.Background(),
		"John", "Doe", "jdoe", "john@doe.com", strongPassword)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "jdoe", user.Username)
	assert.NotEqual(t, strongPassword, user.PassHash)

	// Login by username.
	loggedIn, accessToken, expiresIn, refreshToken, err := a.Login(
		context.Background(), "jdoe", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Positive(t, expiresIn)
	assert.True(t, strings.HasPrefix(refreshToken, "rft_"))

	subject, err := a.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	// Login by email.
	_, _, _, _, err = a.Login(context.Background(), "john@doe.com", strongPassword)
	require.NoError(t, err)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	user := registerTestUser(t, a)

	_, err := a.Register(context.Background(),
		"Other", "Person", user.Username, gofakeit.Email(), strongPassword)
	assert.ErrorIs(t, err, errs.ErrUsernameTaken)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	user := registerTestUser(t, a)

	_, err := a.Register(context.Background(),
		"Other", "Person", gofakeit.Username(), user.Email, strongPassword)
	assert.ErrorIs(t, err, errs.ErrEmailTaken)
}

func TestRegister_WeakPassword(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	_, err := a.Register(context.Background(),
		"John", "Doe", "jdoe", "john@doe.com", "weak")
	require.Error(t, err)

	var domainErr *errs.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, errs.KindValidation, domainErr.Kind)

	// Nothing was persisted.
	assert.Empty(t, store.users)
}

func TestLogin_BadCredentials(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	user := registerTestUser(t, a)

	// Wrong password and unknown identifier report the same error.
	_, _, _, _, err := a.Login(context.Background(), user.Username, "Wr0ngPassw0rd!")
	assert.ErrorIs(t, err, errs.ErrAuthenticationFailed)

	_, _, _, _, err = a.Login(context.Background(), "nobody", strongPassword)
	assert.ErrorIs(t, err, errs.ErrAuthenticationFailed)
}

func TestRefresh_Rotation(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	user := registerTestUser(t, a)
	_, _, _, refreshToken, err := a.Login(context.Background(), user.Username, strongPassword)
	require.NoError(t, err)

	accessToken, expiresIn, newRefreshToken, err := a.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)
	assert.Positive(t, expiresIn)
	assert.NotEqual(t, refreshToken, newRefreshToken)

	subject, err := a.VerifyAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	// Replaying the consumed token signals a conflict.
	_, _, _, err = a.Refresh(context.Background(), refreshToken)
	assert.ErrorIs(t, err, errs.ErrRefreshTokenRevoked)

	// The successor still works.
	_, _, _, err = a.Refresh(context.Background(), newRefreshToken)
	require.NoError(t, err)
}

func TestRefresh_RevocationChaining(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	user := registerTestUser(t, a)
	_, _, _, refreshToken, err := a.Login(context.Background(), user.Username, strongPassword)
	require.NoError(t, err)

	_, _, _, err = a.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)

	// Exactly one revoked record linking to exactly one active successor.
	var revoked, active *models.RefreshToken
	for _, rec := range store.tokens {
		if rec.RevokedAt != nil {
			revoked = rec
		} else {
			active = rec
		}
	}
	require.NotNil(t, revoked)
	require.NotNil(t, active)
	require.NotNil(t, revoked.ReplacedByID)
	assert.Equal(t, active.ID, *revoked.ReplacedByID)
	assert.Nil(t, active.ReplacedByID)
	assert.Equal(t, user.ID, active.UserID)
}

func TestRefresh_RotationDisabled(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, false)

	user := registerTestUser(t, a)
	_, _, _, refreshToken, err := a.Login(context.Background(), user.Username, strongPassword)
	require.NoError(t, err)

	_, _, newRefreshToken, err := a.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)
	assert.Equal(t, refreshToken, newRefreshToken)

	// Token stays active and can be used again.
	_, _, _, err = a.Refresh(context.Background(), refreshToken)
	require.NoError(t, err)
	require.Len(t, store.tokens, 1)
}

func TestRefresh_UnknownToken(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, 24*time.Hour, true)

	_, _, _, err := a.Refresh(context.Background(), "rft_does-not-exist")
	assert.ErrorIs(t, err, errs.ErrInvalidRefreshToken)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, -time.Minute, true)

	user := registerTestUser(t, a)
	_, _, _, refreshToken, err := a.Login(context.Background(), user.Username, strongPassword)
	require.NoError(t, err)

	_, _, _, err = a.Refresh(context.Background(), refreshToken)
	assert.ErrorIs(t, err, errs.ErrInvalidRefreshToken)
}

func TestRefresh_RevokedWinsOverExpired(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store, -time.Minute, true)

	user := registerTestUser(t, a)
	_, _, _, refreshToken, err := a.Login(context.Background(), user.Username, strongPassword)
	require.NoError(t, err)

	// Revoke the (already expired) record out of band.
	for id := range store.tokens {
		require.NoError(t, store.RevokeRefreshToken(context.Background(), id, time.Now()))
	}

	_, _, _, err = a.Refresh(context.Background(), refreshToken)
	assert.ErrorIs(t, err, errs.ErrRefreshTokenRevoked)
}

func TestRefreshTokens_Revoke(t *testing.T) {
	store := newFakeStorage()
	tokens := NewRefreshTokens(store, "test-secret", time.Hour)

	plain, err := tokens.Issue(context.Background(), uuid.New())
	require.NoError(t, err)

	record, err := tokens.Verify(context.Background(), plain)
	require.NoError(t, err)

	require.NoError(t, tokens.Revoke(context.Background(), record))

	_, err = tokens.Verify(context.Background(), plain)
	assert.ErrorIs(t, err, errs.ErrRefreshTokenRevoked)

	// A second revoke of the same record also reports the conflict.
	assert.ErrorIs(t, tokens.Revoke(context.Background(), record), errs.ErrRefreshTokenRevoked)
}

func TestRefreshTokens_IssueProperties(t *testing.T) {
	store := newFakeStorage()
	tokens := NewRefreshTokens(store, "test-secret", time.Hour)

	userID := uuid.New()

	first, err := tokens.Issue(context.Background(), userID)
	require.NoError(t, err)
	second, err := tokens.Issue(context.Background(), userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "rft_"))
	// 48 bytes of entropy, base64url without padding.
	assert.GreaterOrEqual(t, len(first), len("rft_")+64)

	record, err := tokens.Verify(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, userID, record.UserID)
	assert.NotEqual(t, first, record.TokenHash)
	assert.InDelta(t, time.Hour.Seconds(), record.ExpiresAt.Sub(record.IssuedAt).Seconds(), 1)
}
