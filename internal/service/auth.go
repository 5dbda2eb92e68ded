// Package service contains the client flows: authentication and checkout.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/enlite/internal/api"
	"github.com/and161185/enlite/internal/errs"
	"github.com/and161185/enlite/internal/model"
	"github.com/and161185/enlite/internal/repository"
	"github.com/and161185/enlite/internal/session"
)

// DefaultTokenSettleDelay is the pause between attaching a fresh token and
// the first authenticated call.
const DefaultTokenSettleDelay = 50 * time.Millisecond

// AuthService defines login, registration and logout.
type AuthService interface {
	// Login exchanges credentials for a session and returns where to go next.
	Login(ctx context.Context, c model.Credentials) (LoginResult, error)
	// Register creates an account without starting a session.
	Register(ctx context.Context, r model.Registration) error
	// Logout wipes the session.
	Logout(ctx context.Context) error
	// QueueRedirect parks a deep link to visit after the next login.
	QueueRedirect(ctx context.Context, path string) error
}

// LoginResult describes a completed login.
type LoginResult struct {
	Username string
	IsAdmin  bool
	Redirect string
}

type AuthServiceImpl struct {
	api      Backend
	reg      Poster
	store    repository.KV
	notifier *session.Notifier
	nav      Navigator
	log      *zap.Logger
	settle   time.Duration
	validate *validator.Validate
}

// AuthOption customizes AuthServiceImpl.
type AuthOption func(*AuthServiceImpl)

// WithRegistrar sends /register/ through p instead of the main backend.
func WithRegistrar(p Poster) AuthOption { return func(s *AuthServiceImpl) { s.reg = p } }

// WithTokenSettleDelay overrides DefaultTokenSettleDelay.
func WithTokenSettleDelay(d time.Duration) AuthOption {
	return func(s *AuthServiceImpl) { s.settle = d }
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(b Backend, store repository.KV, n *session.Notifier, nav Navigator, log *zap.Logger, opts ...AuthOption) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	s := &AuthServiceImpl{
		api:      b,
		reg:      b,
		store:    store,
		notifier: n,
		nav:      nav,
		log:      log,
		settle:   DefaultTokenSettleDelay,
		validate: validator.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login submits credentials, persists the session, caches the subscription
// snapshot (best effort), notifies listeners and redirects. Cancelling ctx
// only aborts the credentials request; once a token is accepted the rest runs
// to completion.
func (s *AuthServiceImpl) Login(ctx context.Context, c model.Credentials) (LoginResult, error) {
	if err := s.validate.Struct(c); err != nil {
		return LoginResult{}, errs.Alert("Username and password are required", fmt.Errorf("%w: %v", errs.ErrValidation, err))
	}

	var res model.AuthResponse
	if err := s.api.Post(ctx, "/login/", c, &res); err != nil {
		s.log.Info("login rejected", zap.String("username", c.Username), zap.Error(err))
		return LoginResult{}, errs.Alert(orDefault(api.ServerMessage(err), "Invalid credentials"), err)
	}
	if res.Token == "" {
		s.log.Info("login response without token", zap.String("username", c.Username))
		return LoginResult{}, errs.Alert(orDefault(res.Error, "Login failed"), errs.ErrMissingToken)
	}

	// the session is written from here on; caller cancellation no longer applies
	ctx = context.WithoutCancel(ctx)
	if err := s.api.SetToken(ctx, res.Token); err != nil {
		return LoginResult{}, fmt.Errorf("login: persist token: %w", err)
	}
	if err := s.store.Set(ctx, repository.KeyUsername, res.Username); err != nil {
		return LoginResult{}, fmt.Errorf("login: persist username: %w", err)
	}
	if err := s.store.Set(ctx, repository.KeyIsAdmin, fmt.Sprint(res.IsAdmin)); err != nil {
		return LoginResult{}, fmt.Errorf("login: persist admin flag: %w", err)
	}

	if s.settle > 0 {
		time.Sleep(s.settle)
	}
	s.cacheSubscription(ctx)

	if s.notifier != nil {
		s.notifier.Notify()
	}

	target, err := s.redirectTarget(ctx, res.IsAdmin)
	if err != nil {
		return LoginResult{}, err
	}
	s.log.Info("logged in", zap.String("username", res.Username), zap.Bool("admin", res.IsAdmin), zap.String("redirect", target))
	s.nav.Navigate(target)
	return LoginResult{Username: res.Username, IsAdmin: res.IsAdmin, Redirect: target}, nil
}

// cacheSubscription failures are logged and never block login.
func (s *AuthServiceImpl) cacheSubscription(ctx context.Context) {
	var snap model.SubscriptionSnapshot
	if err := s.api.Get(ctx, "/subscription/", &snap); err != nil {
		s.log.Warn("failed loading subscription", zap.Error(err))
		return
	}
	if len(snap.Subscription) == 0 {
		s.log.Debug("subscription field absent; nothing cached")
		return
	}
	if err := s.store.Set(ctx, repository.KeySubscription, string(snap.Subscription)); err != nil {
		s.log.Warn("failed caching subscription", zap.Error(err))
	}
}

// redirectTarget: admins always land on the dashboard; others consume a
// queued deep link or fall back to the profile.
func (s *AuthServiceImpl) redirectTarget(ctx context.Context, isAdmin bool) (string, error) {
	if isAdmin {
		return RouteAdminDashboard, nil
	}
	redirect, ok, err := s.store.Get(ctx, repository.KeyPostLoginRedirect)
	if err != nil {
		return "", fmt.Errorf("login: read redirect: %w", err)
	}
	if !ok || redirect == "" {
		return RouteProfile, nil
	}
	if err := s.store.Remove(ctx, repository.KeyPostLoginRedirect); err != nil {
		return "", fmt.Errorf("login: consume redirect: %w", err)
	}
	return redirect, nil
}

// Register submits the new account. The returned token only signals success;
// no session is stored and no listeners are notified.
func (s *AuthServiceImpl) Register(ctx context.Context, r model.Registration) error {
	if err := s.validate.Struct(r); err != nil {
		return errs.Alert("Username, a valid email and password are required", fmt.Errorf("%w: %v", errs.ErrValidation, err))
	}

	var res model.AuthResponse
	if err := s.reg.Post(ctx, "/register/", r, &res); err != nil {
		s.log.Info("registration rejected", zap.String("username", r.Username), zap.Error(err))
		return errs.Alert(orDefault(api.ServerMessage(err), "Registration failed"), err)
	}
	if res.Token == "" {
		return errs.Alert(orDefault(res.Error, "Registration failed"), errs.ErrMissingToken)
	}

	if err := s.store.Remove(ctx, repository.KeyPostLoginRedirect); err != nil {
		return fmt.Errorf("register: clear redirect: %w", err)
	}
	s.log.Info("registered", zap.String("username", r.Username))
	s.nav.Navigate(RouteLogin)
	return nil
}

// Logout clears the token, every session key and the session-scoped store.
func (s *AuthServiceImpl) Logout(ctx context.Context) error {
	if err := s.api.ClearToken(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if s.notifier != nil {
		s.notifier.Notify()
	}
	s.nav.Navigate(RouteLogin)
	return nil
}

// QueueRedirect stores path as the post-login destination.
func (s *AuthServiceImpl) QueueRedirect(ctx context.Context, path string) error {
	if path == "" {
		return s.store.Remove(ctx, repository.KeyPostLoginRedirect)
	}
	return s.store.Set(ctx, repository.KeyPostLoginRedirect, path)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
