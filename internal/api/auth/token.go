package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// TokenCodec issues and verifies HS256 bearer tokens. Tokens are stateless:
// there is no revocation, a token is good until it expires.
type TokenCodec struct {
	now func() time.Time
}

func NewTokenCodec() *TokenCodec {
	return &TokenCodec{now: time.Now}
}

// WithClock returns a copy of c that reads time from now. Issue and Verify
// must share one clock source for expiry to mean anything.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	return &TokenCodec{now: now}
}

// Issue signs a token for identityID that expires ttl from now.
func (c *TokenCodec) Issue(identityID string, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, newError(KindServerMisconfigured, "Issue", errors.New("signing secret is not configured"))
	}
	if identityID == "" {
		return "", time.Time{}, newError(KindInvalidInput, "Issue", errors.New("empty identity id"))
	}

	now := c.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		UserID: identityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, newError(KindServerMisconfigured, "Issue", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks the signature, then the expiry, and returns the claims. Every
// failure is KindInvalidToken; the wrapped cause is for server logs only.
func (c *TokenCodec) Verify(token string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, newError(KindServerMisconfigured, "Verify", errors.New("signing secret is not configured"))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, newError(KindInvalidToken, "Verify", err)
	}
	if !parsed.Valid {
		return nil, newError(KindInvalidToken, "Verify", errors.New("token not valid"))
	}
	if claims.Subject == "" {
		return nil, newError(KindInvalidToken, "Verify", errors.New("missing subject"))
	}
	if claims.UserID != "" && claims.UserID != claims.Subject {
		return nil, newError(KindInvalidToken, "Verify", errors.New("userId and sub disagree"))
	}
	return claims, nil
}
