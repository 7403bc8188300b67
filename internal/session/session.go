// Package session holds who is logged in: the token, the profile and the
// API client that carries them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/idilsaglam/todoclient/internal/api"
	"github.com/idilsaglam/todoclient/internal/model"
	"github.com/idilsaglam/todoclient/internal/store/credstore"
	"github.com/idilsaglam/todoclient/internal/validate"
)

type State int

const (
	Loading State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrInvalidCredentials is returned by Login when the server rejects the
// email/password pair.
var ErrInvalidCredentials = api.ErrInvalidCredentials

// TokenStore persists the token. *credstore.Store implements it.
type TokenStore interface {
	Load() (*credstore.TokenInfo, error)
	Save(token string) (*credstore.TokenInfo, error)
	Delete() error
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Confirm  string `json:"confirm" validate:"eqfield=Password"`
}

// Session is the authentication state of one client.
type Session struct {
	client *api.Client
	store  TokenStore
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	user      *model.User
	listeners []func(State)
}

func New(client *api.Client, store TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{client: client, store: store, logger: logger, state: Loading}
}

// Client is the API client bound to this session.
func (s *Session) Client() *api.Client { return s.client }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the profile, or nil unless authenticated.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// OnChange registers fn to be called after every state transition.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) set(state State, token string, user *model.User) {
	s.mu.Lock()
	changed := s.state != state || s.token != token
	s.state, s.token, s.user = state, token, user
	ls := append([]func(State){}, s.listeners...)
	s.mu.Unlock()
	if changed {
		for _, fn := range ls {
			fn(state)
		}
	}
}

// Restore picks up a stored token and validates it by fetching the profile.
func (s *Session) Restore(ctx context.Context) error {
	ti, err := s.store.Load()
	if err != nil {
		s.logger.Warn("load credentials", slog.Any("error", err))
		s.set(Anonymous, "", nil)
		return err
	}
	if ti == nil {
		s.set(Anonymous, "", nil)
		return nil
	}
	return s.activate(ctx, ti.Token)
}

// Login exchanges credentials for a token and loads the profile.
// Nothing is persisted unless the whole sequence succeeds.
func (s *Session) Login(ctx context.Context, email, password string) error {
	c := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validate.Struct(c); err != nil {
		return err
	}
	tok, err := s.client.Login(ctx, c.Email, c.Password)
	if err != nil {
		s.logger.Info("login failed", slog.String("email", c.Email), slog.Any("error", err))
		return err
	}
	return s.activate(ctx, tok.AccessToken)
}

// activate attaches token to the client before anything else observes the
// new session. The token is persisted only once the profile loads.
func (s *Session) activate(ctx context.Context, token string) error {
	s.client.SetAuthToken(token)
	u, err := s.client.Me(ctx)
	if err != nil {
		s.logger.Warn("fetch profile", slog.Any("error", err))
		s.clear()
		return fmt.Errorf("fetch profile: %w", err)
	}
	if _, err := s.store.Save(token); err != nil {
		s.logger.Warn("save credentials", slog.Any("error", err))
	}
	s.set(Authenticated, token, &u)
	s.logger.Info("session started", slog.String("email", u.Email))
	return nil
}

// Register creates an account. It does not log in.
func (s *Session) Register(ctx context.Context, email, password, confirm string) (model.User, error) {
	r := registration{Email: strings.TrimSpace(email), Password: password, Confirm: confirm}
	if err := validate.Struct(r); err != nil {
		return model.User{}, err
	}
	u, err := s.client.Register(ctx, r.Email, r.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	s.logger.Info("account registered", slog.String("email", u.Email))
	return u, nil
}

// Logout forgets the token everywhere.
func (s *Session) Logout() {
	s.clear()
	s.logger.Info("logged out")
}

// Expire is Logout triggered by a 401.
func (s *Session) Expire() {
	if s.State() != Authenticated {
		return
	}
	s.clear()
	s.logger.Info("session expired")
}

// HandleError logs out when err is an authorization failure and reports
// whether it did.
func (s *Session) HandleError(err error) bool {
	if errors.Is(err, api.ErrUnauthorized) {
		s.Expire()
		return true
	}
	return false
}

func (s *Session) clear() {
	s.client.SetAuthToken("")
	if err := s.store.Delete(); err != nil {
		s.logger.Warn("delete credentials", slog.Any("error", err))
	}
	s.set(Anonymous, "", nil)
}
