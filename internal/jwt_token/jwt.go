package jwttoken

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"coopconsole/internal/sentinel"
)

// Decoder turns a stored bearer token back into its claims so a session can
// be restored without a network round trip.
//
// Without a verify key the signature is not checked: the console only reads
// its own identity out of the token and the backend re-validates it on every
// request. Expiry is always enforced.
type Decoder struct {
	verifyKey []byte
	now       func() time.Time
	leeway    time.Duration
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithVerifyKey enables HS256 signature verification.
func WithVerifyKey(key string) DecoderOption {
	return func(d *Decoder) {
		if key != "" {
			d.verifyKey = []byte(key)
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) DecoderOption {
	return func(d *Decoder) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLeeway tolerates clock skew on time-based claims.
func WithLeeway(leeway time.Duration) DecoderOption {
	return func(d *Decoder) {
		d.leeway = leeway
	}
}

// NewDecoder builds a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode returns the token's claims as a JSON document.
//
// Errors wrap sentinel.ErrExpired for expired tokens and
// sentinel.ErrInvalidInput for anything malformed or unverifiable.
func (d *Decoder) Decode(tokenString string) ([]byte, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token: %w", sentinel.ErrInvalidInput)
	}

	claims := jwt.MapClaims{}
	if d.verifyKey != nil {
		_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			return d.verifyKey, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(d.now),
			jwt.WithLeeway(d.leeway),
		)
		if err != nil {
			return nil, classify(err)
		}
	} else {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, classify(err)
		}
		validator := jwt.NewValidator(jwt.WithTimeFunc(d.now), jwt.WithLeeway(d.leeway))
		if err := validator.Validate(claims); err != nil {
			return nil, classify(err)
		}
	}

	doc, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("encoding claims: %w", sentinel.ErrInvalidInput)
	}
	return doc, nil
}

// ExpiresAt reports the token's exp claim without validating anything else.
// The zero time means the token carries no expiry or cannot be parsed.
func ExpiresAt(tokenString string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("token expired: %w", sentinel.ErrExpired)
	}
	return fmt.Errorf("invalid token: %v: %w", err, sentinel.ErrInvalidInput)
}
