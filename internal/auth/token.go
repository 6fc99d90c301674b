package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "frontdesk"

// Claims are the JWT claims carried by an access token.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 access tokens. Every token is backed by
// a session row keyed by its JWT ID.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	sessions *SessionStore
	now      func() time.Time
}

// NewTokens creates a token issuer.
func NewTokens(secret string, ttl time.Duration, sessions *SessionStore) *Tokens {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, sessions: sessions, now: time.Now}
}

// Issue signs a token for u and records its session.
func (t *Tokens) Issue(ctx context.Context, u *User) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	jti := uuid.NewString()

	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	if err := t.sessions.Create(ctx, jti, u.ID, expiresAt); err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify checks the signature, expiry and session of raw and returns the
// caller it identifies.
func (t *Tokens) Verify(ctx context.Context, raw string) (Caller, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return Caller{}, err
	}

	c, err := t.sessions.Validate(ctx, claims.ID)
	if err != nil {
		return Caller{}, err
	}
	if strconv.FormatInt(c.ID, 10) != claims.Subject {
		return Caller{}, fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	return c, nil
}

// Revoke ends the session behind raw. Tokens that no longer verify are
// ignored.
func (t *Tokens) Revoke(ctx context.Context, raw string) error {
	claims, err := t.parse(raw)
	if err != nil {
		return nil
	}
	return t.sessions.Destroy(ctx, claims.ID)
}

func (t *Tokens) parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing token id", ErrInvalidToken)
	}
	return claims, nil
}
