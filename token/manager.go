// Package token creates and validates the access tokens this service issues
// to upstream MCP clients. Tokens are HS256 JWTs carrying the grant ID, so
// bearer validation is a signature check plus one grant lookup.
package token

import (
	stderrors "errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/indiemcp/micropub-bridge/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims are the registered and private claims carried by an access token.
type Claims struct {
	GrantID  string `json:"grant_id"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	jwtlib.RegisteredClaims
}

// Manager signs and parses access tokens for one issuer.
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewManager creates a token manager. The secret must be non-empty.
func NewManager(secret []byte, issuer string, expiry time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("[NewManager] signing secret is required")
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &Manager{secret: secret, issuer: issuer, expiry: expiry}, nil
}

// CreateAccessToken mints a signed access token bound to a grant. The subject
// is the authenticated identity URL (the downstream "me").
func (m *Manager) CreateAccessToken(grantID, userID, clientID, scope string) (string, time.Time, error) {
	now := NowTimeFunc()
	expiresAt := now.Add(m.expiry)

	claims := Claims{
		GrantID:  grantID,
		ClientID: clientID,
		Scope:    scope,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ID:        uuid.New().String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[CreateAccessToken] failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies the signature and expiry of a bearer token and
// returns its claims.
func (m *Manager) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwtlib.WithIssuer(m.issuer), jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil {
		if stderrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.Wrapf(errors.ErrInvalidToken, "token validation failed (%v)", err)
	}
	if !parsed.Valid {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the configured access-token lifetime.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}
