package credstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSaveLoadDelete(t *testing.T) {
	t.Setenv(EnvToken, "")
	s := New(filepath.Join(t.TempDir(), "cfg"))

	ti, err := s.Load()
	if err != nil || ti != nil {
		t.Fatalf("Load on empty dir = %v, %v; want nil, nil", ti, err)
	}

	if _, err := s.Save("Bearer abc123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	fi, err := os.Stat(filepath.Join(s.Dir, fileName))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := fi.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}

	ti, err = s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ti.Token != "abc123" || ti.Source != "file" {
		t.Fatalf("Load = %+v", ti)
	}
	if ti.ExpiresAt != nil {
		t.Fatalf("opaque token should have no expiry, got %v", ti.ExpiresAt)
	}

	if err := s.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if ti, _ := s.Load(); ti != nil {
		t.Fatalf("Load after Delete = %+v", ti)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Save("   "); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestEnvOverride(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Save("from-file"); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvToken, "Bearer from-env")

	ti, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if ti.Token != "from-env" || ti.Source != "env" {
		t.Fatalf("Load = %+v, want env token", ti)
	}

	s.NoEnv = true
	ti, _ = s.Load()
	if ti.Token != "from-file" {
		t.Fatalf("NoEnv Load = %+v, want file token", ti)
	}
}

func TestExpiryFromJWT(t *testing.T) {
	exp := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "a@b.c",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	s := New(t.TempDir())
	s.NoEnv = true
	ti, err := s.Save(tok)
	if err != nil {
		t.Fatal(err)
	}
	if ti.ExpiresAt == nil || !ti.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", ti.ExpiresAt, exp)
	}
	if ti.Expired(exp.Add(-time.Minute)) {
		t.Fatal("should not be expired before exp")
	}
	if !ti.Expired(exp) {
		t.Fatal("should be expired at exp")
	}

	claims, ok := Claims(tok)
	if !ok || claims["sub"] != "a@b.c" {
		t.Fatalf("Claims = %v, %v", claims, ok)
	}
}
