// Package api talks to the tracking REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNoBaseURL is returned when the API origin is not configured.
var ErrNoBaseURL = errors.New("api: base URL not configured (set HOS_API_URL or api.base_url)")

// Kind classifies a successful response body.
type Kind int

const (
	KindNone Kind = iota // 204 or empty body
	KindJSON
	KindText
)

// Request describes one API call. Body follows these rules: nil sends no
// body, []byte and io.Reader are sent verbatim, json.RawMessage and any other
// value are sent as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

// Response is a successful (2xx) API response.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Kind     Kind
	Attempts int
}

// Decode unmarshals a JSON body into v. A KindNone response leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || r.Kind == KindNone {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	return nil
}

// Text returns the raw body.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Transport performs single, unauthenticated-by-default exchanges against
// the API origin. Authentication and retries live in Client.
type Transport struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewTransport returns a Transport for baseURL.
func NewTransport(baseURL string, timeout time.Duration, logger *zap.Logger) (*Transport, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// URL joins endpoint to the base URL. Absolute URLs pass through.
func (t *Transport) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return t.baseURL + endpoint
}

// Fetch performs one exchange with the given bearer token ("" for none) and
// maps non-2xx responses to *APIError.
func (t *Transport) Fetch(ctx context.Context, req Request, token string) (*Response, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	return t.fetch(ctx, req, body, contentType, token, 1)
}

func (t *Transport) fetch(ctx context.Context, req Request, body []byte, contentType, token string, attempt int) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, t.URL(req.Path), rdr)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(httpReq)
	}
	requestID := uuid.New().String()
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := t.http.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		t.logger.Debug("Request failed",
			zap.String("method", method),
			zap.String("endpoint", req.Path),
			zap.Int("attempt", attempt),
			zap.String("request_id", requestID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("api: %s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: reading response body: %w", err)
	}

	t.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("endpoint", req.Path),
		zap.Int("attempt", attempt),
		zap.String("request_id", requestID),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, resp.Header.Get("Content-Type"), data)
	}

	out := &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     data,
		Attempts: attempt,
	}
	switch {
	case resp.StatusCode == http.StatusNoContent:
		out.Kind = KindNone
	case isJSON(resp.Header.Get("Content-Type")):
		out.Kind = KindJSON
		if len(bytes.TrimSpace(data)) == 0 {
			out.Kind = KindNone
		}
	default:
		out.Kind = KindText
	}
	return out, nil
}

// encodeBody buffers the request body so a retry can resend it. The second
// return is the automatic content type, empty for verbatim bodies.
func encodeBody(v any) ([]byte, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return b, "application/json", nil
	case []byte:
		return b, "", nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("api: reading request body: %w", err)
		}
		return data, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("api: encoding request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
