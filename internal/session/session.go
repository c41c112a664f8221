// Package session holds the logged-in user and the token pair, and performs
// login, refresh and logout against the auth endpoints.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Tiliavir/hos-tracker/internal/api"
	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/tokenstore"
)

var (
	// ErrNotReady is returned by AccessToken when initialization did not
	// finish within Options.ReadyTimeout.
	ErrNotReady = errors.New("session: not ready")
	// ErrRefreshFailed wraps the cause of a failed token refresh. The
	// session is cleared when it is returned.
	ErrRefreshFailed = errors.New("session: token refresh failed")
	// ErrNoTokens is returned when an auth response lacks the expected tokens.
	ErrNoTokens = errors.New("session: response did not contain tokens")
)

// State is the position in the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateValidating
	StateRefreshing
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValidating:
		return "validating"
	case StateRefreshing:
		return "refreshing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Fetcher performs one unauthenticated-by-default API exchange.
// *api.Transport implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req api.Request, token string) (*api.Response, error)
}

// Options configures a Session.
type Options struct {
	// ReadyTimeout bounds how long AccessToken waits for initialization.
	// Defaults to 5s.
	ReadyTimeout time.Duration
	// RefreshTimeout bounds a token refresh, which runs detached from the
	// caller's context. Defaults to 30s.
	RefreshTimeout time.Duration
	// OnLogout runs after an explicit or forced logout.
	OnLogout func()
	Logger   *zap.Logger
}

// Session is safe for concurrent use.
type Session struct {
	fetcher Fetcher
	store   *tokenstore.Store
	opts    Options
	logger  *zap.Logger

	mu      sync.RWMutex
	user    *model.User
	access  string
	refresh string
	state   State

	ready     chan struct{}
	readyOnce sync.Once
	initOnce  sync.Once
	initErr   error

	refreshGroup singleflight.Group
}

var _ oauth2.TokenSource = (*Session)(nil)

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// New returns a session seeded with the tokens persisted in store. A store
// that cannot be read is logged and treated as empty.
func New(ctx context.Context, fetcher Fetcher, store *tokenstore.Store, opts Options) *Session {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		logger:  logger,
		state:   StateUninitialized,
		ready:   make(chan struct{}),
	}

	tok, err := store.Tokens(ctx)
	if err != nil {
		logger.Warn("Could not read stored tokens", zap.Error(err))
		return s
	}
	s.access = tok.AccessToken
	s.refresh = tok.RefreshToken
	return s
}

// Initialize validates the persisted tokens. It runs once; later calls
// return the first result.
func (s *Session) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
		s.markReady()
	})
	return s.initErr
}

func (s *Session) initialize(ctx context.Context) error {
	s.mu.RLock()
	access, refresh := s.access, s.refresh
	s.mu.RUnlock()

	switch {
	case access != "":
		s.setState(StateValidating)
		user, err := s.fetchUser(ctx, access)
		if err == nil {
			s.publish(user, access, "")
			return nil
		}
		if api.IsStatus(err, http.StatusUnauthorized) && refresh != "" {
			return s.refreshAndFetch(ctx)
		}

		var apiErr *api.APIError
		if !errors.As(err, &apiErr) {
			// API unreachable: the tokens may still be good next time.
			s.logger.Warn("Could not validate session", zap.Error(err))
			s.setState(StateUnauthenticated)
			return fmt.Errorf("session: validating tokens: %w", err)
		}
		s.Logout()
		return fmt.Errorf("session: validating tokens: %w", err)

	case refresh != "":
		return s.refreshAndFetch(ctx)

	default:
		s.clear(ctx)
		return nil
	}
}

func (s *Session) refreshAndFetch(ctx context.Context) error {
	s.setState(StateRefreshing)
	token, err := s.Refresh(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.setState(StateUnauthenticated)
		return fmt.Errorf("session: refreshing tokens: %w", err)
	}
	if err != nil {
		s.Logout()
		return err
	}
	if token == "" {
		s.Logout()
		return ErrNoTokens
	}
	user, err := s.fetchUser(ctx, token)
	if err != nil {
		s.Logout()
		return fmt.Errorf("session: fetching profile: %w", err)
	}
	s.publish(user, token, "")
	return nil
}

// Login exchanges credentials for a token pair, loads the profile and
// persists everything. Any failure leaves the session cleared.
func (s *Session) Login(ctx context.Context, username, password string) (bool, error) {
	resp, err := s.fetcher.Fetch(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login/",
		Body:   map[string]string{"username": username, "password": password},
	}, "")
	if err != nil {
		s.clear(ctx)
		return false, err
	}

	var pair tokenPair
	if err := resp.Decode(&pair); err != nil {
		s.clear(ctx)
		return false, err
	}
	if pair.Access == "" || pair.Refresh == "" {
		s.clear(ctx)
		return false, ErrNoTokens
	}

	user, err := s.fetchUser(ctx, pair.Access)
	if err != nil {
		s.clear(ctx)
		return false, fmt.Errorf("session: fetching profile: %w", err)
	}
	if err := s.store.SetTokens(ctx, pair.Access, pair.Refresh); err != nil {
		s.clear(ctx)
		return false, err
	}

	s.publish(user, pair.Access, pair.Refresh)
	s.initOnce.Do(func() {})
	s.markReady()
	s.logger.Info("Logged in", zap.String("username", user.Username))
	return true, nil
}

// Register creates a new account. It does not log in.
func (s *Session) Register(ctx context.Context, reg model.Registration) error {
	_, err := s.fetcher.Fetch(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/register/",
		Body:   reg,
	}, "")
	return err
}

// Refresh obtains a new access token. Without a stored refresh token it
// returns "" and does nothing. Concurrent callers share one request, which
// is detached from the callers' contexts: a caller that gives up gets
// ctx.Err() while the refresh completes for the others. When the server
// rejects the refresh the session is cleared and the error wraps
// ErrRefreshFailed.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	if refresh == "" {
		return "", nil
	}

	ch := s.refreshGroup.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RefreshTimeout)
		defer cancel()
		return s.doRefresh(rctx, refresh)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *Session) doRefresh(ctx context.Context, refresh string) (string, error) {
	resp, err := s.fetcher.Fetch(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/refresh/",
		Body:   map[string]string{"refresh": refresh},
	}, "")

	var pair tokenPair
	if err == nil {
		err = resp.Decode(&pair)
	}
	if err == nil && pair.Access == "" {
		err = ErrNoTokens
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Interrupted, not rejected: keep the stored tokens.
		s.logger.Warn("Token refresh interrupted", zap.Error(err))
		return "", err
	}
	if err != nil {
		s.logger.Warn("Token refresh failed, clearing session", zap.Error(err))
		s.clear(ctx)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	if err := s.store.SetTokens(ctx, pair.Access, pair.Refresh); err != nil {
		s.logger.Warn("Could not persist refreshed tokens", zap.Error(err))
	}

	s.mu.Lock()
	s.access = pair.Access
	if pair.Refresh != "" {
		s.refresh = pair.Refresh
	}
	s.mu.Unlock()

	s.logger.Debug("Access token refreshed", zap.Bool("rotated", pair.Refresh != ""))
	return pair.Access, nil
}

// AccessToken returns the current access token, waiting for initialization
// first. Without an access token it tries one refresh; a failed refresh
// yields "" and a nil error.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if err := s.waitReady(ctx); err != nil {
		return "", err
	}

	s.mu.RLock()
	access, refresh := s.access, s.refresh
	s.mu.RUnlock()
	if access != "" {
		return access, nil
	}
	if refresh == "" {
		return "", nil
	}

	token, err := s.Refresh(ctx)
	if err != nil {
		s.logger.Warn("Could not obtain access token", zap.Error(err))
		return "", nil
	}
	return token, nil
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	token, err := s.AccessToken(context.Background())
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNoTokens
	}
	s.mu.RLock()
	refresh := s.refresh
	s.mu.RUnlock()
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", RefreshToken: refresh}, nil
}

// Logout clears memory and the store, then runs the OnLogout hook.
func (s *Session) Logout() {
	s.clear(context.Background())
	if s.opts.OnLogout != nil {
		s.opts.OnLogout()
	}
}

// User returns the logged-in user or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether both a user and an access token are held.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.access != ""
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) fetchUser(ctx context.Context, token string) (*model.User, error) {
	resp, err := s.fetcher.Fetch(ctx, api.Request{Method: http.MethodGet, Path: "/api/auth/me/"}, token)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// publish sets user and tokens in one step so no reader sees one without
// the other. An empty refresh keeps the current one.
func (s *Session) publish(user *model.User, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.access = access
	if refresh != "" {
		s.refresh = refresh
	}
	s.state = StateAuthenticated
}

func (s *Session) clear(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.access = ""
	s.refresh = ""
	s.state = StateUnauthenticated
	s.mu.Unlock()

	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("Could not clear stored tokens", zap.Error(err))
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) waitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}

	timer := time.NewTimer(s.opts.ReadyTimeout)
	defer timer.Stop()
	select {
	case <-s.ready:
		return nil
	case <-timer.C:
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}
