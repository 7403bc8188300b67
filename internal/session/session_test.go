package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/store/credstore"
	"github.com/idilsaglam/todoclient/internal/testutil/fakeapi"
	"github.com/idilsaglam/todoclient/internal/validate"
)

func newSession(t *testing.T) (*Session, *fakeapi.Server, *credstore.Store) {
	t.Helper()
	srv := fakeapi.New(t)
	store := &credstore.Store{Dir: t.TempDir(), NoEnv: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(api.New(srv.URL, api.WithLogger(logger)), store, logger), srv, store
}

func TestLoginWrongPasswordStaysAnonymous(t *testing.T) {
	s, srv, store := newSession(t)
	srv.AddUser("ann@example.com", "secret1")
	ctx := context.Background()
	if err := s.Restore(ctx); err != nil {
		t.Fatal(err)
	}

	err := s.Login(ctx, "ann@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login err = %v, want ErrInvalidCredentials", err)
	}
	if s.State() != Anonymous {
		t.Fatalf("state = %v, want anonymous", s.State())
	}
	if ti, _ := store.Load(); ti != nil {
		t.Fatalf("token persisted after failed login: %+v", ti)
	}
	if s.Client().AuthToken() != "" {
		t.Fatal("client carries a token after failed login")
	}
}

func TestLoginPersistsAndLoadsProfile(t *testing.T) {
	s, srv, store := newSession(t)
	srv.AddUser("ann@example.com", "secret1")

	var seen []State
	s.OnChange(func(st State) { seen = append(seen, st) })

	if err := s.Login(context.Background(), " ann@example.com ", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.State() != Authenticated {
		t.Fatalf("state = %v", s.State())
	}
	if u := s.User(); u == nil || u.Email != "ann@example.com" {
		t.Fatalf("User = %+v", u)
	}
	ti, _ := store.Load()
	if ti == nil || ti.Token != s.Client().AuthToken() {
		t.Fatalf("stored %+v, client token %q", ti, s.Client().AuthToken())
	}
	if len(seen) != 1 || seen[0] != Authenticated {
		t.Fatalf("listener saw %v", seen)
	}
}

func TestLoginValidation(t *testing.T) {
	s, srv, _ := newSession(t)
	err := s.Login(context.Background(), "not-an-email", "x")
	var ve *validate.Error
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if n := srv.Requests(http.MethodPost, "/auth/login"); n != 0 {
		t.Fatalf("login requests = %d, want 0", n)
	}
}

func TestRestore(t *testing.T) {
	s, srv, store := newSession(t)
	tok := srv.AddUser("bob@example.com", "secret1")
	if _, err := store.Save(tok); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.State() != Authenticated || s.User().Email != "bob@example.com" {
		t.Fatalf("state = %v user = %+v", s.State(), s.User())
	}
}

func TestRestoreWithRevokedTokenClearsStorage(t *testing.T) {
	s, srv, store := newSession(t)
	tok := srv.AddUser("bob@example.com", "secret1")
	srv.Revoke(tok)
	if _, err := store.Save(tok); err != nil {
		t.Fatal(err)
	}

	err := s.Restore(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("Restore err = %v, want ErrUnauthorized", err)
	}
	if s.State() != Anonymous {
		t.Fatalf("state = %v", s.State())
	}
	if ti, _ := store.Load(); ti != nil {
		t.Fatal("stale token kept on disk")
	}
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	s, srv, _ := newSession(t)
	ctx := context.Background()
	_ = s.Restore(ctx)

	if _, err := s.Register(ctx, "new@example.com", "123", "123"); err == nil {
		t.Fatal("short password accepted")
	}
	if _, err := s.Register(ctx, "new@example.com", "123456", "654321"); err == nil {
		t.Fatal("mismatched confirmation accepted")
	}
	if n := srv.Requests(http.MethodPost, "/auth/register"); n != 0 {
		t.Fatalf("register requests = %d, want 0", n)
	}

	u, err := s.Register(ctx, "new@example.com", "123456", "123456")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "new@example.com" || s.State() != Anonymous {
		t.Fatalf("user = %+v state = %v", u, s.State())
	}

	_, err = s.Register(ctx, "new@example.com", "123456", "123456")
	if api.StatusOf(err) != http.StatusBadRequest || api.Message(err) != "Email already registered" {
		t.Fatalf("duplicate register err = %v", err)
	}
}

func TestLogoutAndExpire(t *testing.T) {
	s, srv, store := newSession(t)
	srv.AddUser("ann@example.com", "secret1")
	ctx := context.Background()
	if err := s.Login(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}

	if s.HandleError(errors.New("boom")) {
		t.Fatal("plain error treated as unauthorized")
	}
	if !s.HandleError(&api.Error{Status: http.StatusUnauthorized}) {
		t.Fatal("401 not handled")
	}
	if s.State() != Anonymous || s.Client().AuthToken() != "" || s.User() != nil {
		t.Fatalf("after expire: state=%v token=%q", s.State(), s.Client().AuthToken())
	}
	if ti, _ := store.Load(); ti != nil {
		t.Fatal("token kept after expire")
	}

	if err := s.Login(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	s.Logout()
	if s.State() != Anonymous {
		t.Fatalf("after logout: %v", s.State())
	}
}
