package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/logger"
	"github.com/isdmx/reqbox/sandbox"
)

// BytesPerMB is used for the response size limit
const BytesPerMB = 1024 * 1024

// maxRedirects matches the net/http default
const maxRedirects = 10

// ErrInvalidURL is returned when a request URL is not an absolute http(s) URL
var ErrInvalidURL = errors.New("invalid request url")

// ErrResponseTooLarge is returned when a response body exceeds the configured limit
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// Config holds configuration for the HTTP client
type Config struct {
	Timeout          time.Duration
	MaxResponseBytes int64
	FollowRedirects  bool
}

// DefaultConfig returns the client defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		MaxResponseBytes: 10 * BytesPerMB,
		FollowRedirects:  true,
	}
}

// Response is the summary of a completed HTTP exchange
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	// Data is the decoded JSON body, or the raw body as a string.
	Data    any           `json:"data"`
	Elapsed time.Duration `json:"-"`
}

// ResponseError reports a response with a status of 400 or above.
// The response is still available to the caller.
type ResponseError struct {
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("Request failed with status code %d", e.Response.Status)
}

// Client sends request specifications over HTTP
type Client struct {
	logger *zap.Logger
	config *Config
	http   *http.Client
}

// Option defines a functional option for Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a new Client
func New(logger *zap.Logger, cfg *Config, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Client{
		logger: logger,
		config: cfg,
		http: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: redirectPolicy(cfg.FollowRedirects),
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewFromConfig builds the client described by the client section
func NewFromConfig(log *zap.Logger, cfg *config.Config) *Client {
	return New(logger.Component(log, "httpclient"), &Config{
		Timeout:          cfg.GetClientTimeout(),
		MaxResponseBytes: int64(cfg.Client.MaxResponseMB) * BytesPerMB,
		FollowRedirects:  cfg.Client.FollowRedirects,
	})
}

func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	if !follow {
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

// Do sends spec and returns the response summary. A status of 400 or above
// yields both the response and a *ResponseError.
func (c *Client) Do(ctx context.Context, spec sandbox.RequestSpec) (*Response, error) {
	spec = spec.Normalized()
	method := strings.ToUpper(spec.Method)

	if err := validateURL(spec.URL); err != nil {
		return nil, err
	}

	body, contentType, err := encodeBody(spec.Body)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, spec.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, value := range spec.Headers {
		httpReq.Header.Set(name, value)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("sending http request",
		zap.String("method", method),
		zap.String("url", spec.URL))

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("http request failed",
			zap.String("method", method),
			zap.String("url", spec.URL),
			zap.Error(err))
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp.Body)
	if err != nil {
		c.logger.Warn("failed to read response body",
			zap.String("url", spec.URL),
			zap.Error(err))
		return nil, err
	}

	out := &Response{
		Status:  resp.StatusCode,
		Headers: flattenHeaders(resp.Header),
		Data:    decodeBody(raw),
		Elapsed: time.Since(started),
	}

	c.logger.Info("http request completed",
		zap.String("method", method),
		zap.String("url", spec.URL),
		zap.Int("status", out.Status),
		zap.Duration("elapsed", out.Elapsed))

	if out.Status >= http.StatusBadRequest {
		return out, &ResponseError{Response: out}
	}
	return out, nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	limit := c.config.MaxResponseBytes
	if limit <= 0 {
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return raw, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	return raw, nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// encodeBody returns the wire form of a request body: nil sends nothing,
// strings go out verbatim and everything else is JSON.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), "", nil
	case []byte:
		return b, "", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return raw, "application/json", nil
	}
}

func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}
	return string(raw)
}

// flattenHeaders lower-cases header names and joins repeated values
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}

// sortedHeaderNames returns header names in a stable order
func sortedHeaderNames(headers map[string]string) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
