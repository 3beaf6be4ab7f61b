package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finapi/internal/domain/errs"
	"finapi/internal/domain/models"
	"finapi/internal/lib/jwt"
	"finapi/internal/lib/sl"
	"finapi/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	UserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	UserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Auth composes the password policy, the credential hasher, the access
// token codec and the refresh token service into the register, login and
// refresh flows.
type Auth struct {
	logger        *slog.Logger
	users         UserStorage
	tokens        *RefreshTokens
	codec         *jwt.Codec
	rotateRefresh bool
}

// New returns a new instance of the Auth service.
func New(
	logger *slog.Logger,
	users UserStorage,
	tokens *RefreshTokens,
	codec *jwt.Codec,
	rotateRefresh bool,
) *Auth {
	return &Auth{
		logger:        logger,
		users:         users,
		tokens:        tokens,
		codec:         codec,
		rotateRefresh: rotateRefresh,
	}
}

// Register creates a new user. Username uniqueness is checked before email,
// then the password policy, then the hash is persisted. The returned user
// carries the hash only internally; transports must not expose it.
func (a *Auth) Register(
	ctx context.Context,
	name, lastname, username, email, password string,
) (*models.User, error) {
	const op = "auth.Register"
	log := a.logger.With(
		slog.String("op", op),
		slog.String("username", username),
	)
	log.Info("register request")

	taken, err := a.users.UsernameExists(ctx, username)
	if err != nil {
		log.Error("failed to check username", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		log.Warn("username already taken")
		return nil, fmt.Errorf("%s: %w", op, errs.ErrUsernameTaken)
	}

	taken, err = a.users.EmailExists(ctx, email)
	if err != nil {
		log.Error("failed to check email", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		log.Warn("email already registered")
		return nil, fmt.Errorf("%s: %w", op, errs.ErrEmailTaken)
	}

	if err := ValidatePassword(password); err != nil {
		log.Warn("password rejected by policy")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.New(),
		Name:      name,
		Lastname:  lastname,
		Username:  username,
		Email:     email,
		PassHash:  string(passHash),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.users.SaveUser(ctx, user); err != nil {
		// The unique constraints back the pre-checks against races.
		if errors.Is(err, storage.ErrUsernameTaken) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrUsernameTaken)
		}
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrEmailTaken)
		}
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("userID", user.ID.String()))

	return user, nil
}

// Login authenticates by username or email and returns the user together
// with an access token, its TTL in seconds, and a fresh refresh token. A
// missing user and a wrong password report the same error.
func (a *Auth) Login(
	ctx context.Context,
	identifier, password string,
) (*models.User, string, int, string, error) {
	const op = "auth.Login"
	log := a.logger.With(slog.String("op", op))
	log.Info("login request")

	user, err := a.users.UserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return nil, "", 0, "", fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, "", 0, "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		log.Warn("invalid password")
		return nil, "", 0, "", fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
	}

	accessToken, expiresIn, err := a.codec.Mint(user.ID)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return nil, "", 0, "", fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := a.tokens.Issue(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue refresh token", sl.Err(err))
		return nil, "", 0, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("userID", user.ID.String()))

	return user, accessToken, expiresIn, refreshToken, nil
}

// Refresh exchanges a valid refresh token for a new access token. When
// rotation is enabled the presented token is consumed and a successor is
// returned; otherwise the same token is handed back.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (string, int, string, error) {
	const op = "auth.Refresh"
	log := a.logger.With(slog.String("op", op))
	log.Info("refresh request")

	record, err := a.tokens.Verify(ctx, refreshToken)
	if err != nil {
		log.Warn("refresh token rejected", sl.Err(err))
		return "", 0, "", fmt.Errorf("%s: %w", op, err)
	}

	accessToken, expiresIn, err := a.codec.Mint(record.UserID)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", 0, "", fmt.Errorf("%s: %w", op, err)
	}

	newRefreshToken := refreshToken
	if a.rotateRefresh {
		newRefreshToken, err = a.tokens.Rotate(ctx, record)
		if err != nil {
			log.Error("failed to rotate refresh token", sl.Err(err))
			return "", 0, "", fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Info("tokens refreshed", slog.String("userID", record.UserID.String()))

	return accessToken, expiresIn, newRefreshToken, nil
}

// VerifyAccessToken parses a bearer token and returns the subject user ID.
func (a *Auth) VerifyAccessToken(token string) (uuid.UUID, error) {
	const op = "auth.VerifyAccessToken"

	userID, err := a.codec.Verify(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidAccessToken)
	}
	return userID, nil
}
