// Package credstore persists the bearer token between runs.
// Single JSON file, owner-only permissions. The token is the only
// client state that survives a restart.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	fileName = "credentials.json"
	// EnvToken overrides the stored token when set.
	EnvToken = "TODO_TOKEN"
)

type TokenInfo struct {
	Token     string     `json:"token"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // from the JWT exp claim, if any
}

// Expired reports whether the token carries an expiry that has passed.
func (ti *TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && !ti.ExpiresAt.After(now)
}

// Store reads and writes credentials under Dir.
type Store struct {
	Dir string
	// NoEnv ignores TODO_TOKEN (tests, explicit logins).
	NoEnv bool
}

func New(dir string) *Store { return &Store{Dir: dir} }

func (s *Store) path() string { return filepath.Join(s.Dir, fileName) }

// Load returns the current token, or nil when not logged in.
func (s *Store) Load() (*TokenInfo, error) {
	if !s.NoEnv {
		if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
			tok := stripBearer(env)
			return &TokenInfo{Token: tok, Source: "env", ExpiresAt: Expiry(tok)}, nil
		}
	}

	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var ti TokenInfo
	if err := json.Unmarshal(b, &ti); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	ti.Token = stripBearer(ti.Token)
	if ti.Token == "" {
		return nil, nil
	}
	return &ti, nil
}

// Save writes token to disk with 0600 permissions.
func (s *Store) Save(token string) (*TokenInfo, error) {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	// ensure the directory exists with 0700
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	ti := TokenInfo{
		Token:     token,
		Source:    "file",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: Expiry(token),
	}
	b, err := json.MarshalIndent(ti, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return &ti, nil
}

// Delete removes the stored token. Missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Claims decodes a JWT payload without verifying it. The client never holds
// the signing key; this is for display and expiry only.
func Claims(token string) (jwt.MapClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Expiry returns the exp claim of a JWT, or nil for opaque tokens.
func Expiry(token string) *time.Time {
	claims, ok := Claims(token)
	if !ok {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time.UTC()
	return &t
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
