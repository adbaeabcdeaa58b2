// Package auth owns the stored bearer credential issued by the coaching API.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/claude/coachtrack/internal/kv"
)

// TokenKey is the storage key for the last-issued credential.
const TokenKey = "client_jwt"

var (
	// ErrMalformedToken is returned when a token is not a JWT with an exp claim.
	ErrMalformedToken = errors.New("auth: malformed token")
)

// Store reads and writes the credential through an injected kv.Store.
type Store struct {
	kv  kv.Store
	now func() time.Time
	log *slog.Logger
}

// NewStore creates a credential store backed by store.
func NewStore(store kv.Store, log *slog.Logger) *Store {
	return &Store{kv: store, now: time.Now, log: log}
}

// Token returns the stored credential when one exists and has not expired.
// An unreadable or expired token is reported as absent.
func (s *Store) Token() (string, bool) {
	raw, err := s.kv.Get(TokenKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("reading credential failed", "error", err)
		}
		return "", false
	}
	token := string(raw)
	if token == "" {
		return "", false
	}

	exp, err := Expiry(token)
	if err != nil {
		s.log.Warn("stored credential unreadable", "error", err)
		return "", false
	}
	if !exp.After(s.now()) {
		return "", false
	}
	return token, true
}

// Set stores a newly issued credential.
func (s *Store) Set(token string) error {
	if _, err := Expiry(token); err != nil {
		return err
	}
	if err := s.kv.Set(TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// Clear removes the stored credential. Failures are logged only.
func (s *Store) Clear() {
	if err := s.kv.Delete(TokenKey); err != nil {
		s.log.Warn("clearing credential failed", "error", err)
	}
}

// Authenticated reports whether a non-expired credential is stored.
func (s *Store) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Expiry reads the exp claim of a JWT without verifying its signature.
// The server is the only party that validates the token; the client reads exp for UX.
func Expiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser(jwt.WithPaddingAllowed()).ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", ErrMalformedToken)
	}
	return claims.ExpiresAt.Time, nil
}

// Mint signs an HS256 token for subject expiring at expiresAt.
func Mint(subject string, expiresAt time.Time, key []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Verify checks the HS256 signature and expiry of token against now and
// returns its subject.
func Verify(token string, key []byte, now func() time.Time) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
