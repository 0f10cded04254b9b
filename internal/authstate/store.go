// Package authstate holds the process-wide authentication state that user
// interfaces read and drive.
package authstate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"racoonsmeal/internal/apiclient"
	"racoonsmeal/internal/credential"
	"racoonsmeal/internal/event"
	"racoonsmeal/internal/model"
)

// SessionAPI is the subset of the API client the store depends on.
type SessionAPI interface {
	Register(ctx context.Context, in model.RegisterRequest) (json.RawMessage, error)
	Login(ctx context.Context, username string, password string) (*apiclient.LoginResult, error)
	CurrentUser(ctx context.Context) (*model.User, error)
	Logout(ctx context.Context) error
	ProfileStatus(ctx context.Context) (apiclient.ProfileStatus, error)
	OnSessionExpired(fn func())
}

// Session is a point-in-time copy of the authentication state.
type Session struct {
	User    *model.User `json:"user"`
	Loading bool        `json:"loading"`
}

func (s Session) IsAuthenticated() bool {
	return s.User != nil
}

type Store struct {
	api         SessionAPI
	credentials credential.Store
	bus         event.Bus
	navigator   Navigator
	logger      *slog.Logger

	initOnce sync.Once

	mu      sync.RWMutex
	session Session
}

type Option func(*Store)

func WithNavigator(navigator Navigator) Option {
	return func(s *Store) {
		if navigator != nil {
			s.navigator = navigator
		}
	}
}

func WithBus(bus event.Bus) Option {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store that starts in the loading state and registers itself for
// session-expiry notifications on api.
func New(api SessionAPI, credentials credential.Store, opts ...Option) *Store {
	s := &Store{
		api:         api,
		credentials: credentials,
		bus:         event.NewBus(),
		navigator:   noopNavigator{},
		logger:      slog.Default(),
		session:     Session{Loading: true},
	}
	for _, opt := range opts {
		opt(s)
	}

	api.OnSessionExpired(s.sessionExpired)

	return s
}

// Initialize restores the session from stored credentials. Only the first call does
// any work.
func (s *Store) Initialize(ctx context.Context) {
	s.initOnce.Do(func() {
		s.restore(ctx)
	})
}

func (s *Store) restore(ctx context.Context) {
	defer s.setLoading(false)

	if _, ok, err := s.credentials.Get(ctx, credential.KeyAccessToken); err != nil || !ok {
		if err != nil {
			s.logger.Warn("failed to read stored session", "error", err)
		}
		return
	}

	user, err := s.api.CurrentUser(ctx)
	if err != nil || user == nil {
		if err != nil {
			s.logger.Warn("failed to restore session", "error", err)
		}
		if err := s.api.Logout(ctx); err != nil {
			s.logger.Error("failed to clear stored session", "error", err)
		}
		s.setUser(nil)
		return
	}

	s.setUser(user)
	s.publish(event.TypeSessionRestored, user)
}

// Login authenticates and, on success, makes the returned user current. On failure
// the state is left untouched.
func (s *Store) Login(ctx context.Context, username string, password string) (*model.User, error) {
	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		return nil, err
	}

	s.setUser(result.User)
	s.publish(event.TypeLoggedIn, result.User)
	return result.User, nil
}

// Register creates the account and logs in with the same credentials.
func (s *Store) Register(ctx context.Context, in model.RegisterRequest) (*model.User, error) {
	if _, err := s.api.Register(ctx, in); err != nil {
		s.logger.Warn("registration failed", "username", in.Username, "error", err)
		return nil, err
	}

	return s.Login(ctx, in.Username, in.Password)
}

func (s *Store) Logout(ctx context.Context) error {
	user := s.User()

	err := s.api.Logout(ctx)
	s.setUser(nil)
	s.navigator.Navigate(PathLogin)
	s.publish(event.TypeLoggedOut, user)

	return err
}

// RefreshUser refetches the current user. Failures keep the previous user.
func (s *Store) RefreshUser(ctx context.Context) {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		s.logger.Warn("failed to refresh user", "error", err)
		return
	}

	s.setUser(user)
	s.publish(event.TypeUserRefreshed, user)
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) User() *model.User {
	return s.Snapshot().User
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

func (s *Store) IsLoading() bool {
	return s.Snapshot().Loading
}

// Subscribe streams state changes until the returned function is called.
func (s *Store) Subscribe() (<-chan event.Event, func()) {
	return s.bus.Subscribe()
}

func (s *Store) sessionExpired() {
	user := s.User()
	s.setUser(nil)
	s.publish(event.TypeSessionExpired, user)
	s.navigator.Navigate(PathLogin)
}

func (s *Store) setUser(user *model.User) {
	s.mu.Lock()
	s.session.User = user
	s.mu.Unlock()
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.session.Loading = loading
	s.mu.Unlock()
}

func (s *Store) publish(eventType event.Type, user *model.User) {
	e := event.Event{Type: eventType}
	if user != nil {
		e.Username = user.Username
		e.Payload = *user
	}
	s.bus.Publish(e)
}
