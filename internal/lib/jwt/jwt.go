// Package jwt mints and verifies the signed access tokens handed out on
// login and refresh. Tokens are stateless: there is no server-side
// revocation list, they simply age out.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"finapi/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Codec signs and parses access tokens with a symmetric secret.
type Codec struct {
	secret   []byte
	method   jwt.SigningMethod
	issuer   string
	audience string
	ttl      time.Duration
}

// NewCodec builds a codec from the JWT configuration. Only HMAC signing
// methods are accepted.
func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm: %s", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", cfg.Algorithm)
	}

	return &Codec{
		secret:   []byte(cfg.Secret),
		method:   method,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTTL,
	}, nil
}

// Mint creates a signed access token for the user with the configured TTL
// and returns it together with the TTL in seconds.
func (c *Codec) Mint(userID uuid.UUID) (string, int, error) {
	return c.MintWithTTL(userID, c.ttl)
}

// MintWithTTL is Mint with an explicit lifetime.
func (c *Codec) MintWithTTL(userID uuid.UUID, ttl time.Duration) (string, int, error) {
	now := time.Now().UTC()

	token := jwt.NewWithClaims(c.method, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", 0, err
	}

	return signed, int(ttl.Seconds()), nil
}

// Verify parses the token and returns the subject user ID. Any failure
// (bad signature, malformed token, missing sub/iat/exp, expiry in the past,
// issuer or audience mismatch) reports the same ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}
