package auth

import (
	"testing"
	"time"

	"meetly/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Minute, Issuer: "meetly"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	tok, err := GenerateAccessToken(cfg, 42, "a@example.com", "PARTNER")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "PARTNER", claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	cfg := testConfig()

	other := *cfg
	other.AccessSecret = "other"
	forged, err := GenerateAccessToken(&other, 42, "a@example.com", "ADMIN")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := *cfg
	expired.AccessExpiry = -time.Minute
	old, err := GenerateAccessToken(&expired, 42, "a@example.com", "USER")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := *cfg
	foreign.Issuer = "someone-else"
	tok, err := GenerateAccessToken(&foreign, 42, "a@example.com", "USER")
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseAccessToken(cfg, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
