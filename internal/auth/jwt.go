// Package auth verifies the bearer tokens issued by the identity service.
package auth

import (
	"errors"
	"strconv"
	"time"

	"meetly/config"

	"github.com/golang-jwt/jwt/v5"
)

// clockSkew tolerates small clock drift between the identity service and us.
const clockSkew = 30 * time.Second

var ErrInvalidToken = errors.New("invalid token")

// Claims carry the caller identity. Role is one of domain.Role*.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 token for userID. The identity service
// mints tokens in production; tests and local tooling use this.
func GenerateAccessToken(cfg *config.JWTConfig, userID uint, email, role string) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessExpiry)),
		},
	}).SignedString([]byte(cfg.AccessSecret))
}

// ParseAccessToken accepts only HS256 tokens from the configured issuer that
// carry an expiry and a user id.
func ParseAccessToken(cfg *config.JWTConfig, raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.AccessSecret), nil
	})
	if err != nil || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
