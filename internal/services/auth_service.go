// Package services – AuthService
//
// AuthService verifies bearer tokens issued by the auth provider and mints
// anonymous session tokens. Tokens are HS256 JWTs whose subject is the user
// id; the optional "email" and "anon" claims complete the identity.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT payload understood by the API.
type Claims struct {
	Email string `json:"email,omitempty"`
	Anon  bool   `json:"anon,omitempty"`
	jwt.RegisteredClaims
}

// AuthService signs and verifies session tokens.
type AuthService struct {
	Secret  []byte // empty disables token auth
	Issuer  string
	AnonTTL time.Duration // 0 = 30 days

	// Now is overridable in tests.
	Now func() time.Time
}

// Session is a freshly issued token.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Anonymous bool      `json:"anonymous"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Enabled reports whether tokens can be issued and verified.
func (s *AuthService) Enabled() bool { return s != nil && len(s.Secret) > 0 }

// IssueAnonymous mints a token for a new guest identity.
func (s *AuthService) IssueAnonymous() (*Session, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	ttl := s.AnonTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return s.Issue(Identity{UserID: "anon_" + uuid.NewString(), Anonymous: true}, ttl)
}

// Issue signs a token for who, valid for ttl.
func (s *AuthService) Issue(who Identity, ttl time.Duration) (*Session, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	claims := Claims{
		Email: who.Email,
		Anon:  who.Anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.UserID,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: tok, UserID: who.UserID, Anonymous: who.Anonymous, ExpiresAt: exp}, nil
}

// Verify parses a bearer token and returns the identity it carries.
func (s *AuthService) Verify(raw string) (Identity, error) {
	if !s.Enabled() {
		return Identity{}, ErrAuthDisabled
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.Issuer))
	}
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return s.Secret, nil }, opts...)
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}
	if c.Subject == "" || len(c.Subject) > 64 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.Subject, Email: c.Email, Anonymous: c.Anon}, nil
}
