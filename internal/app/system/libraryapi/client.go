// Package libraryapi is the client for the library REST backend.
//
// The backend issues a bearer token at login; every other call carries it.
// A 401 from any call is reported as ErrUnauthorized so handlers can hand
// it to the session layer, which signs the user out.
package libraryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/questionbank/internal/app/system/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	DefaultProfilePath = "/api/users/me/"
	defaultTimeout     = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read for a detail message.
	maxErrorBody = 64 << 10
)

// ErrUnauthorized is returned (wrapped in *APIError) when the backend
// rejects the token.
var ErrUnauthorized = errors.New("libraryapi: unauthorized")

// APIError is a non-2xx backend response.
type APIError struct {
	Op     string
	Status int
	// Detail is the backend's "detail" message when it sent one.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("libraryapi: %s: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("libraryapi: %s: status %d", e.Op, e.Status)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// DetailOr returns the backend detail message carried by err, or fallback.
func DetailOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	ProfilePath string
	Timeout     time.Duration
	// HTTPClient supplies the base transport. Its Transport is wrapped with
	// the bearer token per call; nil uses http.DefaultTransport.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the library backend. It holds no per-user state and is
// safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	profilePath string
	timeout     time.Duration
	base        http.RoundTripper
	log         *zap.Logger
}

// New builds a Client from opts.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("libraryapi: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("libraryapi: base url %q must be http or https", opts.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("libraryapi: base url %q has no host", opts.BaseURL)
	}

	c := &Client{
		baseURL:     u,
		profilePath: opts.ProfilePath,
		timeout:     opts.Timeout,
		base:        http.DefaultTransport,
		log:         opts.Logger,
	}
	if c.profilePath == "" {
		c.profilePath = DefaultProfilePath
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		c.base = opts.HTTPClient.Transport
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Ping reports whether the backend answers HTTP. Any status below 500
// counts, since an unauthenticated request is expected to be refused.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/categories/", nil), nil)
	if err != nil {
		return fmt.Errorf("libraryapi: ping: %w", err)
	}
	resp, err := c.do("ping", "", req, http.StatusOK, http.StatusUnauthorized, http.StatusForbidden)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

// httpClient returns an *http.Client for one call. A non-empty token is
// attached as a bearer credential.
func (c *Client) httpClient(token string) *http.Client {
	rt := c.base
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.base,
		}
	}
	return &http.Client{Transport: rt, Timeout: c.timeout}
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends req and returns the response when its status is one of ok.
// Any other status is drained, closed and turned into an *APIError.
func (c *Client) do(op, token string, req *http.Request, ok ...int) (*http.Response, error) {
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient(token).Do(req)
	metrics.BackendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(op, "error").Inc()
		c.log.Warn("backend request failed",
			zap.String("op", op),
			zap.String("request_id", reqID),
			zap.Error(err))
		return nil, fmt.Errorf("libraryapi: %s: %w", op, err)
	}
	metrics.BackendRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	defer resp.Body.Close()

	apiErr := &APIError{Op: op, Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr.Detail = detailFrom(body)

	c.log.Debug("backend returned error status",
		zap.String("op", op),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.String("detail", apiErr.Detail))
	return nil, apiErr
}

// detailFrom extracts the DRF "detail" message. Non-string details (field
// error maps, lists) are ignored.
func detailFrom(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err != nil {
		return ""
	}
	return s
}

// getJSON performs a GET and decodes a 200 response into out.
func (c *Client) getJSON(ctx context.Context, op, token, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return fmt.Errorf("libraryapi: %s: %w", op, err)
	}
	resp, err := c.do(op, token, req, http.StatusOK)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("libraryapi: %s: decode: %w", op, err)
	}
	return nil
}

// postJSON sends body as JSON and decodes a response with one of the ok
// statuses into out (when out is non-nil).
func (c *Client) postJSON(ctx context.Context, op, token, path string, body, out any, ok ...int) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("libraryapi: %s: encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("libraryapi: %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(op, token, req, ok...)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("libraryapi: %s: decode: %w", op, err)
	}
	return nil
}

// listOf decodes either a bare JSON array or a paginated
// {"count": n, "results": [...]} object. count is len(items) for bare arrays.
func listOf[T any](raw json.RawMessage) (items []T, count int, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, err
		}
		return items, len(items), nil
	}
	var page struct {
		Count   *int `json:"count"`
		Results []T  `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, 0, err
	}
	if page.Count == nil {
		return page.Results, len(page.Results), nil
	}
	return page.Results, *page.Count, nil
}
