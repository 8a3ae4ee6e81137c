package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrExpired = errors.New("session token expired")

// Verifier decides whether a stored session is still trusted.
type Verifier interface {
	Verify(ctx context.Context, s Session) error
}

// TrustVerifier accepts every stored session; the API is the authority on
// expiry and a stale token surfaces as 401 on the next call.
type TrustVerifier struct{}

func (TrustVerifier) Verify(context.Context, Session) error { return nil }

// JWTExpiryVerifier rejects sessions whose access token is a JWT with an
// elapsed exp claim. The signature is not checked: the key belongs to the API.
// Tokens that are not JWTs, or carry no exp, are trusted.
type JWTExpiryVerifier struct {
	Now    func() time.Time
	Leeway time.Duration
}

func (v JWTExpiryVerifier) Verify(_ context.Context, s Session) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if now().After(exp.Add(v.Leeway)) {
		return fmt.Errorf("%w at %s", ErrExpired, exp.UTC().Format(time.RFC3339))
	}
	return nil
}

// NewVerifier maps a configuration name to a Verifier.
func NewVerifier(name string) (Verifier, error) {
	switch name {
	case "", "trust":
		return TrustVerifier{}, nil
	case "jwt-expiry":
		return JWTExpiryVerifier{Leeway: 30 * time.Second}, nil
	default:
		return nil, fmt.Errorf("unknown session verifier %q", name)
	}
}
