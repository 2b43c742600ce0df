// Package session holds the per-client console session: the backend bearer
// token, the resolved user, the setup-completion flag and the theme and
// locale preferences.
//
// A Session is the only writer of its state. Everything else, the navigation
// guard included, reads through Reader and asks the session to perform its
// own writes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ordertrack/console/internal/backend"
	"ordertrack/console/internal/i18n"
)

// Persisted state keys.
const (
	KeyToken  = "token"
	KeyTheme  = "theme"
	KeyLocale = "locale"
)

var (
	ErrNoToken           = errors.New("session has no token")
	ErrSessionInvalid    = errors.New("session invalid")
	ErrInvalidTheme      = errors.New("invalid theme")
	ErrUnsupportedLocale = errors.New("unsupported locale")
)

// StateStore persists client state by (client id, key).
type StateStore interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Set(ctx context.Context, clientID, key, value string) error
	Delete(ctx context.Context, clientID, key string) error
}

// Backend is the part of the backend API a session drives.
type Backend interface {
	Login(ctx context.Context, username, password string) (backend.TokenResponse, error)
	Setup(ctx context.Context, username, password string) (backend.TokenResponse, error)
	Status(ctx context.Context) (backend.SetupStatus, error)
	Me(ctx context.Context, token string) (backend.User, error)
}

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

func ParseTheme(value string) (Theme, error) {
	switch Theme(value) {
	case ThemeLight, ThemeDark, ThemeSystem:
		return Theme(value), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTheme, value)
}

// Reader is the read-only view of a session.
type Reader interface {
	ID() string
	Token() string
	User() (backend.User, bool)
	IsLoggedIn() bool
	IsAdmin() bool
	SetupCompleted() (completed, known bool)
	Theme() Theme
	Locale() string
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ClientID       string        `json:"clientId"`
	LoggedIn       bool          `json:"loggedIn"`
	IsAdmin        bool          `json:"isAdmin"`
	User           *backend.User `json:"user"`
	SetupCompleted *bool         `json:"setupCompleted"`
	Theme          Theme         `json:"theme"`
	Locale         string        `json:"locale,omitempty"`
}

type Session struct {
	id      string
	backend Backend
	state   StateStore
	sealer  *Sealer
	log     *zap.Logger

	nav chan struct{}

	mu             sync.RWMutex
	token          string
	user           *backend.User
	setupCompleted *bool
	theme          Theme
	locale         string
}

func newSession(id string, b Backend, state StateStore, sealer *Sealer, log *zap.Logger) *Session {
	return &Session{
		id:      id,
		backend: b,
		state:   state,
		sealer:  sealer,
		log:     log.With(zap.String("client_id", id)),
		nav:     make(chan struct{}, 1),
		theme:   ThemeSystem,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() (backend.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return backend.User{}, false
	}
	return *s.user, true
}

// IsLoggedIn is true while a token is held, resolved or not.
func (s *Session) IsLoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

func (s *Session) SetupCompleted() (bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.setupCompleted == nil {
		return false, false
	}
	return *s.setupCompleted, true
}

func (s *Session) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// Locale is the saved locale, empty when the client never chose one.
func (s *Session) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ClientID: s.id,
		LoggedIn: s.token != "",
		Theme:    s.theme,
		Locale:   s.locale,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
		snap.IsAdmin = user.IsAdmin
	}
	if s.setupCompleted != nil {
		done := *s.setupCompleted
		snap.SetupCompleted = &done
	}
	return snap
}

// BeginNavigation serializes navigations of this session. The returned func
// releases the slot.
func (s *Session) BeginNavigation(ctx context.Context) (func(), error) {
	select {
	case s.nav <- struct{}{}:
		return func() { <-s.nav }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) Login(ctx context.Context, username, password string) error {
	resp, err := s.backend.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.setToken(ctx, resp.AccessToken); err != nil {
		return err
	}
	return s.FetchUser(ctx)
}

// Setup creates the first admin account and signs in as it.
func (s *Session) Setup(ctx context.Context, username, password string) error {
	resp, err := s.backend.Setup(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.setToken(ctx, resp.AccessToken); err != nil {
		return err
	}
	s.mu.Lock()
	done := true
	s.setupCompleted = &done
	s.mu.Unlock()
	return s.FetchUser(ctx)
}

// FetchUser resolves the profile for the held token. Any failure other than
// the caller giving up logs the session out.
func (s *Session) FetchUser(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNoToken
	}
	user, err := s.backend.Me(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("fetch user: %w", err)
		}
		s.log.Info("profile fetch failed, clearing session", zap.Error(err))
		if clearErr := s.clearToken(ctx, token); clearErr != nil {
			s.log.Warn("clear persisted token", zap.Error(clearErr))
		}
		return fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.user = &user
	}
	return nil
}

// CheckStatus loads the setup-completion flag.
func (s *Session) CheckStatus(ctx context.Context) error {
	status, err := s.backend.Status(ctx)
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}
	s.mu.Lock()
	done := status.SetupCompleted
	s.setupCompleted = &done
	s.mu.Unlock()
	return nil
}

func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	if err := s.state.Delete(ctx, s.id, KeyToken); err != nil {
		return err
	}
	return nil
}

func (s *Session) SetTheme(ctx context.Context, value string) error {
	theme, err := ParseTheme(value)
	if err != nil {
		return err
	}
	if err := s.state.Set(ctx, s.id, KeyTheme, string(theme)); err != nil {
		return err
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return nil
}

func (s *Session) SetLocale(ctx context.Context, locale string) error {
	if !i18n.Supported(locale) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}
	if err := s.state.Set(ctx, s.id, KeyLocale, locale); err != nil {
		return err
	}
	s.mu.Lock()
	s.locale = locale
	s.mu.Unlock()
	return nil
}

// setToken persists the sealed token before installing it, so a failed write
// leaves the session untouched.
func (s *Session) setToken(ctx context.Context, token string) error {
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	if err := s.state.Set(ctx, s.id, KeyToken, sealed); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()
	return nil
}

// clearToken logs out only if token is still the held one; a login that
// raced the failed fetch keeps its new token.
func (s *Session) clearToken(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.token != token {
		s.mu.Unlock()
		return nil
	}
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	return s.state.Delete(ctx, s.id, KeyToken)
}

// restore loads persisted state. A token that no longer opens is dropped.
func (s *Session) restore(ctx context.Context) error {
	sealed, ok, err := s.state.Get(ctx, s.id, KeyToken)
	if err != nil {
		return err
	}
	var token string
	if ok {
		token, err = s.sealer.Open(sealed)
		if err != nil {
			s.log.Warn("dropping unreadable persisted token", zap.Error(err))
			if err := s.state.Delete(ctx, s.id, KeyToken); err != nil {
				return err
			}
			token = ""
		}
	}

	theme := ThemeSystem
	if raw, ok, err := s.state.Get(ctx, s.id, KeyTheme); err != nil {
		return err
	} else if ok {
		if parsed, err := ParseTheme(raw); err == nil {
			theme = parsed
		}
	}

	var locale string
	if raw, ok, err := s.state.Get(ctx, s.id, KeyLocale); err != nil {
		return err
	} else if ok && i18n.Supported(raw) {
		locale = raw
	}

	s.mu.Lock()
	s.token = token
	s.theme = theme
	s.locale = locale
	s.mu.Unlock()
	return nil
}
