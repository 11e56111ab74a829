package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kurohana/kurohana/internal/config"
	"github.com/kurohana/kurohana/pkg/bus"
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// NetworkError means the request never produced an HTTP response:
// DNS failure, refused connection, transport timeout, cancelled context.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError means the service answered with a non-2xx status.
// Error() returns the human-readable message extracted from the body.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	StatusText string
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Client performs single request/response cycles against the prediction
// service and mirrors failures (and POST successes) onto the event bus.
// It never retries; callers decide what to do with an error.
//
// A Client is safe for concurrent use.
type Client struct {
	base   string
	hc     *http.Client
	bus    *bus.Bus
	report func(method, outcome string) // metrics hook; never nil
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (tests use httptest's).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithReporter installs a hook called once per request with the HTTP method
// and its outcome: "success", "network_error", "api_error" or "canceled".
func WithReporter(fn func(method, outcome string)) Option {
	return func(c *Client) {
		if fn != nil {
			c.report = fn
		}
	}
}

// New returns a Client for cfg.APIBase that publishes to b.
func New(cfg config.ClientConfig, b *bus.Bus, opts ...Option) (*Client, error) {
	if cfg.APIBase == "" {
		return nil, errors.New("apiclient: api base is required")
	}
	c := &Client{
		base:   strings.TrimRight(cfg.APIBase, "/"),
		hc:     buildHTTPClient(cfg),
		bus:    b,
		report: func(string, string) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Base returns the configured API base URL.
func (c *Client) Base() string { return c.base }

// GetJSON performs GET path and decodes the JSON response into out.
// Successful GETs are not published; the health poller issues them on a
// timer and would flood the log.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out, false)
}

// PostJSON performs POST path with body encoded as JSON and decodes the
// response into out. On success an info entry is published under label
// (or path when label is empty).
func (c *Client) PostJSON(ctx context.Context, path, label string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, label, body, out, true)
}

// --- internal ---------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path, label string, body, out any, logSuccess bool) error {
	if label == "" {
		label = path
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		nerr := &NetworkError{Method: method, Path: path, Err: err}
		if errors.Is(ctx.Err(), context.Canceled) {
			// Cancelled by the caller; not a transport failure.
			c.report(method, "canceled")
			return nerr
		}
		c.bus.Error(fmt.Sprintf("[network] %s %s failed: %s", method, path, transportMessage(err)))
		c.report(method, "network_error")
		return nerr
	}
	defer resp.Body.Close()

	statusText := statusTextOf(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		aerr := &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			StatusText: statusText,
			Message:    errorMessage(resp, statusText),
		}
		c.bus.Error(fmt.Sprintf("[api] %s %s -> %d %s: %s",
			method, path, resp.StatusCode, statusText, aerr.Message))
		c.report(method, "api_error")
		return aerr
	}

	if logSuccess {
		c.bus.Info(fmt.Sprintf("[api] %s -> %d %s", label, resp.StatusCode, statusText))
	}
	c.report(method, "success")

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts a readable message from a failed response:
// the "detail" field of a JSON object, else the compact JSON body, else the
// status line when the body is not JSON.
func errorMessage(resp *http.Response, statusText string) string {
	statusLine := strings.TrimSpace(fmt.Sprintf("%d %s", resp.StatusCode, statusText))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || !json.Valid(raw) {
		return statusLine
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) == nil {
		if detail, ok := obj["detail"]; ok {
			var s string
			if json.Unmarshal(detail, &s) == nil {
				return s
			}
			return compact(detail)
		}
	}
	return compact(raw)
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// statusTextOf returns the reason phrase sent by the server, falling back to
// the canonical text for the code.
func statusTextOf(resp *http.Response) string {
	if text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); text != resp.Status && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// transportMessage unwraps *url.Error so the log line names the cause rather
// than repeating the method and URL.
func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}

// buildHTTPClient constructs an http.Client for the configured TLS settings
// and request timeout.
func buildHTTPClient(cfg config.ClientConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}
}
