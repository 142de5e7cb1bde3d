package jwttoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues HS256 tokens in the shape the backend hands out at sign-in.
// Only dev tooling and tests use it; production tokens come from the backend.
type Signer struct {
	signingKey []byte
	now        func() time.Time
}

// NewSigner returns a Signer using key.
func NewSigner(key string, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{signingKey: []byte(key), now: now}
}

// Issue signs claims, adding iat, exp and jti. A non-positive ttl issues a
// token that is already expired, which tests use for restoration failures.
func (s *Signer) Issue(claims map[string]any, ttl time.Duration) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := s.now()
	all := jwt.MapClaims{}
	maps.Copy(all, claims)
	all["iat"] = jwt.NewNumericDate(now)
	all["exp"] = jwt.NewNumericDate(now.Add(ttl))
	all["jti"] = hex.EncodeToString(b)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, all).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
