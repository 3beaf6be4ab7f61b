package jwt

import (
	"testing"
	"time"

	"finapi/internal/config"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:    "test-secret",
		Algorithm: "HS256",
		Issuer:    "finance_api",
		Audience:  "finance_api_users",
		AccessTTL: time.Hour,
	}
}

func TestNewCodec_RejectsNonHMAC(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = "RS256"
	_, err := NewCodec(cfg)
	require.Error(t, err)

	cfg.Algorithm = "nonsense"
	_, err = NewCodec(cfg)
	require.Error(t, err)
}

func TestMintVerify_RoundTrip(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	userID := uuid.New()
	mintTime := time.Now()

	token, expiresIn, err := codec.Mint(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, 3600, expiresIn)

	parsed, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)

	// Claim contents match the configuration.
	raw, err := jwtlib.ParseWithClaims(token, &jwtlib.RegisteredClaims{}, func(*jwtlib.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := raw.Claims.(*jwtlib.RegisteredClaims)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "finance_api", claims.Issuer)
	assert.Equal(t, jwtlib.ClaimStrings{"finance_api_users"}, claims.Audience)
	assert.InDelta(t, mintTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix(), 1)
}

func TestVerify_Expired(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	token, _, err := codec.MintWithTTL(uuid.New(), -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	other := testConfig()
	other.Secret = "other-secret"
	otherCodec, err := NewCodec(other)
	require.NoError(t, err)

	token, _, err := otherCodec.Mint(uuid.New())
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_IssuerAudienceMismatch(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	badIssuer := testConfig()
	badIssuer.Issuer = "someone-else"
	issuerCodec, err := NewCodec(badIssuer)
	require.NoError(t, err)

	token, _, err := issuerCodec.Mint(uuid.New())
	require.NoError(t, err)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badAudience := testConfig()
	badAudience.Audience = "other_users"
	audienceCodec, err := NewCodec(badAudience)
	require.NoError(t, err)

	token, _, err = audienceCodec.Mint(uuid.New())
	require.NoError(t, err)
	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingClaims(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	// Token without exp claim.
	noExp := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:  uuid.NewString(),
		IssuedAt: jwtlib.NewNumericDate(time.Now()),
		Issuer:   "finance_api",
		Audience: jwtlib.ClaimStrings{"finance_api_users"},
	})
	signed, err := noExp.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token without subject.
	noSub := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    "finance_api",
		Audience:  jwtlib.ClaimStrings{"finance_api_users"},
	})
	signed, err = noSub.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestVerify_SubjectNotUUID(t *testing.T) {
	codec, err := NewCodec(testConfig())
	require.NoError(t, err)

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "not-a-uuid",
		IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    "finance_api",
		Audience:  jwtlib.ClaimStrings{"finance_api_users"},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
