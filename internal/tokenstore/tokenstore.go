// Package tokenstore persists the session's credentials between runs.
package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ErrCorrupt is returned when a token file cannot be decoded. The file is
// moved aside so the next read starts clean.
var ErrCorrupt = errors.New("tokenstore: corrupt token file")

// Storage keys. KeyMarker mirrors the access token and is what route
// guards look at; it may lag behind the real session state.
const (
	KeyAccess  = "accessToken"
	KeyRefresh = "refreshToken"
	KeyMarker  = "authToken"
)

// Backend is a small string key/value store. Get returns "" for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Store wraps a Backend with token-shaped accessors.
type Store struct {
	backend Backend
}

// New returns a Store on top of b.
func New(b Backend) *Store {
	return &Store{backend: b}
}

// Open creates the backend for driver ("file" or "sqlite") at path.
func Open(driver, path string) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch driver {
	case "file", "":
		b, err = NewFileBackend(path)
	case "sqlite":
		b, err = NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("tokenstore: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Tokens returns the persisted token pair. Both fields may be empty.
func (s *Store) Tokens(ctx context.Context) (*oauth2.Token, error) {
	access, err := s.backend.Get(ctx, KeyAccess)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading access token: %w", err)
	}
	refresh, err := s.backend.Get(ctx, KeyRefresh)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading refresh token: %w", err)
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh}
	if access != "" {
		tok.TokenType = "Bearer"
	}
	return tok, nil
}

// SetTokens persists both tokens and the auth marker. An empty refresh
// token leaves the stored one untouched.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) error {
	if err := s.SetAccess(ctx, access); err != nil {
		return err
	}
	if refresh == "" {
		return nil
	}
	if err := s.backend.Set(ctx, KeyRefresh, refresh); err != nil {
		return fmt.Errorf("tokenstore: writing refresh token: %w", err)
	}
	return nil
}

// SetAccess persists a new access token and updates the marker.
func (s *Store) SetAccess(ctx context.Context, access string) error {
	if err := s.backend.Set(ctx, KeyAccess, access); err != nil {
		return fmt.Errorf("tokenstore: writing access token: %w", err)
	}
	if err := s.backend.Set(ctx, KeyMarker, access); err != nil {
		return fmt.Errorf("tokenstore: writing auth marker: %w", err)
	}
	return nil
}

// Clear removes every credential key.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyAccess, KeyRefresh, KeyMarker); err != nil {
		return fmt.Errorf("tokenstore: clearing tokens: %w", err)
	}
	return nil
}

// Marker returns the auth marker used by route guards.
func (s *Store) Marker(ctx context.Context) (string, error) {
	return s.backend.Get(ctx, KeyMarker)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
