package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrSessionExpired is returned when a request is still unauthorized after
// one refresh, or when the refresh itself fails.
var ErrSessionExpired = errors.New("api: session expired, please log in again")

// APIError is a non-2xx response other than the handled 401.
type APIError struct {
	Status int
	// Body is the decoded JSON body (map, slice, ...) or the raw text.
	Body   any
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// Fields returns per-field validation messages from a JSON object body,
// e.g. {"username": ["already taken"]}. Keys are sorted.
func (e *APIError) Fields() []string {
	m, ok := e.Body.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if k != "detail" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, p := range v {
				parts = append(parts, fmt.Sprint(p))
			}
			out = append(out, k+": "+strings.Join(parts, " "))
		default:
			out = append(out, k+": "+fmt.Sprint(v))
		}
	}
	return out
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func newAPIError(status int, contentType string, data []byte) *APIError {
	e := &APIError{Status: status}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return e
	}

	var parsed any
	if isJSON(contentType) || json.Valid(data) {
		if err := json.Unmarshal(data, &parsed); err == nil {
			e.Body = parsed
			if m, ok := parsed.(map[string]any); ok {
				if d, ok := m["detail"].(string); ok {
					e.Detail = d
				}
			}
			return e
		}
	}
	e.Body = text
	if len(text) <= 200 {
		e.Detail = text
	}
	return e
}
