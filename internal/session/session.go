// Package session holds the per-visitor authentication identity: anonymous,
// or a logged-in user with a bearer token. The token is persisted in the
// visitor's durable key-value store so a session survives restarts.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/backend"
	"github.com/utafrali/storefront/internal/kvstore"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Listener is notified after every identity change (login, logout, token
// invalidation). The cart store subscribes to re-resolve its backing source.
type Listener func(ctx context.Context)

// Session is the explicit identity object for one visitor. It implements
// backend.TokenSource, so the gateway receives the token through an accessor
// rather than reading ambient storage.
type Session struct {
	visitorID string
	store     kvstore.Store
	api       *backend.Client
	logger    *slog.Logger

	mu        sync.RWMutex
	user      *backend.User
	token     string
	listeners []Listener
}

// New creates a session for the given visitor. Call Hydrate before use.
func New(visitorID string, store kvstore.Store, api *backend.Client, logger *slog.Logger) *Session {
	return &Session{
		visitorID: visitorID,
		store:     store,
		api:       api,
		logger:    logger,
	}
}

// VisitorID returns the visitor identifier this session belongs to.
func (s *Session) VisitorID() string {
	return s.visitorID
}

// OnChange registers a listener invoked after every identity change.
func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Authenticated reports whether a user is currently logged in.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns the current user profile, or nil when anonymous.
func (s *Session) User() *backend.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the current bearer token, or "" when anonymous.
func (s *Session) Token(ctx context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// InvalidateToken discards the stored token and flips the session to
// anonymous. The gateway calls this on any 401 response, including ones from
// background cart refreshes.
func (s *Session) InvalidateToken(ctx context.Context) {
	s.mu.Lock()
	if s.token == "" && s.user == nil {
		s.mu.Unlock()
		return
	}
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.store.Delete(ctx, kvstore.TokenKey(s.visitorID)); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete stored token",
			slog.String("visitor_id", s.visitorID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "session token invalidated",
		slog.String("visitor_id", s.visitorID),
	)

	s.notify(ctx)
}

// Hydrate restores the session from the persisted token, if any. A stored
// token that the backend no longer accepts is discarded silently; the
// session simply comes up anonymous.
func (s *Session) Hydrate(ctx context.Context) error {
	data, err := s.store.Get(ctx, kvstore.TokenKey(s.visitorID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load stored token: %w", err)
	}

	s.mu.Lock()
	s.token = string(data)
	s.mu.Unlock()

	user, err := s.api.CurrentUser(ctx, s)
	if err != nil {
		// Invalid or expired token: InvalidateToken already ran for the 401
		// case; clear local state for any other failure too.
		if !errors.Is(err, apperrors.ErrSessionExpired) {
			s.mu.Lock()
			s.token = ""
			s.mu.Unlock()
		}
		s.logger.WarnContext(ctx, "stored token rejected during hydration",
			slog.String("visitor_id", s.visitorID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	return nil
}

// Login authenticates with the backend, persists the token, and loads the
// user profile. Listeners fire once, after the identity is fully established.
func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.api.CurrentUser(ctx, s)
	if err != nil {
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		return fmt.Errorf("fetch profile after login: %w", err)
	}

	if err := s.store.Set(ctx, kvstore.TokenKey(s.visitorID), []byte(token)); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session token",
			slog.String("visitor_id", s.visitorID),
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "login successful",
		slog.String("visitor_id", s.visitorID),
		slog.String("user_id", user.ID),
	)

	s.notify(ctx)
	return nil
}

// Register creates a new account. It does not log the user in; the caller
// follows up with Login.
func (s *Session) Register(ctx context.Context, email, password, fullName string) (*backend.User, error) {
	user, err := s.api.Register(ctx, backend.RegisterInput{
		Email:    email,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "registration successful",
		slog.String("visitor_id", s.visitorID),
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// Logout discards the token and user and notifies listeners.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.user != nil || s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if !wasAuthenticated {
		return
	}

	if err := s.store.Delete(ctx, kvstore.TokenKey(s.visitorID)); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete stored token",
			slog.String("visitor_id", s.visitorID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "logout",
		slog.String("visitor_id", s.visitorID),
	)

	s.notify(ctx)
}

// notify invokes listeners outside the state lock so they can read session
// state freely.
func (s *Session) notify(ctx context.Context) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ctx)
	}
}
