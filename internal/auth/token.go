// Package auth issues and verifies the signed resume tokens a host
// hands each guest at join time. A token proves the reconnecting peer
// is the same identity that originally took the seat.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL matches the resume-record retention window: a token
// older than this is useless anyway because the host has forgotten the
// disconnection.
const DefaultTokenTTL = 30 * time.Minute

// TokenService implements netsync.TokenVerifier over HMAC-signed JWTs.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService builds a service signing with the given secret.
// A zero ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

type resumeClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a resume token for the seated player.
func (s *TokenService) Issue(playerID uuid.UUID, name string) (string, error) {
	now := time.Now()
	claims := resumeClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign resume token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the player id the
// token was issued for.
func (s *TokenService) Verify(tokenStr string) (uuid.UUID, error) {
	var claims resumeClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse resume token: %w", err)
	}
	if !token.Valid {
		return uuid.Nil, fmt.Errorf("resume token invalid")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resume token subject: %w", err)
	}
	return id, nil
}
