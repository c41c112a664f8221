package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// maxAttempts bounds Client.Do: the original request plus one retry after
// a successful refresh.
const maxAttempts = 2

// Authenticator supplies and renews bearer tokens. The session implements it.
type Authenticator interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Logout()
}

// AuthFuncs adapts plain functions to Authenticator. Nil funcs are no-ops.
type AuthFuncs struct {
	GetToken     func(ctx context.Context) (string, error)
	RefreshToken func(ctx context.Context) (string, error)
	OnLogout     func()
}

func (f AuthFuncs) AccessToken(ctx context.Context) (string, error) {
	if f.GetToken == nil {
		return "", nil
	}
	return f.GetToken(ctx)
}

func (f AuthFuncs) Refresh(ctx context.Context) (string, error) {
	if f.RefreshToken == nil {
		return "", nil
	}
	return f.RefreshToken(ctx)
}

func (f AuthFuncs) Logout() {
	if f.OnLogout != nil {
		f.OnLogout()
	}
}

// Client performs authenticated requests. On a 401 it refreshes once and
// retries; a second 401 or a failed refresh ends the session.
type Client struct {
	t      *Transport
	auth   Authenticator
	logger *zap.Logger
}

// NewClient returns a Client using t for transport and auth for tokens.
func NewClient(t *Transport, auth Authenticator, logger *zap.Logger) *Client {
	if auth == nil {
		auth = AuthFuncs{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{t: t, auth: auth, logger: logger}
}

// Do executes req. The returned Response reports how many attempts were made.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	token, err := c.auth.AccessToken(ctx)
	switch {
	case err != nil:
		c.logger.Warn("No access token available, sending request without authorization",
			zap.String("endpoint", req.Path),
			zap.Error(err),
		)
		token = ""
	case token == "":
		c.logger.Warn("No access token available, sending request without authorization",
			zap.String("endpoint", req.Path),
		)
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.t.fetch(ctx, req, body, contentType, token, attempt)
		if err == nil {
			return resp, nil
		}
		if !IsStatus(err, http.StatusUnauthorized) {
			return nil, err
		}

		if attempt >= maxAttempts {
			c.logger.Warn("Request unauthorized after token refresh",
				zap.String("endpoint", req.Path),
				zap.Int("attempt", attempt),
			)
			c.auth.Logout()
			return nil, ErrSessionExpired
		}

		newToken, rerr := c.auth.Refresh(ctx)
		if errors.Is(rerr, context.Canceled) || errors.Is(rerr, context.DeadlineExceeded) {
			return nil, rerr
		}
		if rerr != nil || newToken == "" {
			if rerr == nil {
				rerr = errors.New("no new access token")
			}
			c.logger.Warn("Token refresh failed",
				zap.String("endpoint", req.Path),
				zap.Error(rerr),
			)
			c.auth.Logout()
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, rerr)
		}
		token = newToken
	}
}

// Get is a shorthand for a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post is a shorthand for a POST request with body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put is a shorthand for a PUT request with body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}
