package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrRevoked is returned by Parse for a token that was logged out.
var ErrRevoked = errors.New("session token revoked")

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	DisplayName string   `json:"name,omitempty"`
	Roles       []string `json:"roles"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	key     []byte
	issuer  string
	ttl     time.Duration
	now     func() time.Time
	revoked *RevocationStore
}

func NewTokenIssuer(key []byte, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenIssuer{key: key, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// SetRevocations enables logout: tokens whose ID is in store are rejected.
func (t *TokenIssuer) SetRevocations(store *RevocationStore) { t.revoked = store }

// Revoke invalidates the token behind s until it would have expired.
func (t *TokenIssuer) Revoke(s *Session) error {
	if t.revoked == nil {
		return errors.New("token revocation is not enabled")
	}
	if s.TokenID == "" {
		return errors.New("session has no token id")
	}
	t.revoked.Revoke(s.TokenID, s.ExpiresAt)
	return nil
}

// Issue returns a signed token for s and its expiry.
func (t *TokenIssuer) Issue(s *Session) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.AccountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Username:    s.Username,
		DisplayName: s.DisplayName,
		Roles:       s.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and returns the session it carries.
func (t *TokenIssuer) Parse(tokenStr string) (*Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if !token.Valid || claims.Username == "" {
		return nil, errors.New("invalid session token")
	}
	if t.revoked != nil && t.revoked.IsRevoked(claims.ID) {
		return nil, ErrRevoked
	}

	return &Session{
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
		AccountID:   claims.Subject,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Roles:       claims.Roles,
	}, nil
}
