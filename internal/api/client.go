package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultTimeout           = 10 * time.Second
	defaultUserAgent         = "storefront-client/1.0"
	errorBodyReadLimit int64 = 4096
	requestIDHeader          = "X-Request-Id"
)

// Older backend handlers report duplicates with a plain message and a 400.
var legacyConflictMessages = []string{
	"already in wishlist",
	"email is already registered",
}

var errBaseURLRequired = errors.New("api base url is required")

// Client is the typed HTTP client for the marketplace backend. A Client is
// safe for concurrent use; WithToken returns a copy bound to a credential.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	token      string
	logg       *logger.Logger
	metrics    *metrics.APIMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(userAgent); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

func WithMetrics(m *metrics.APIMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		userAgent:  defaultUserAgent,
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// WithToken returns a copy of the client that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = strings.TrimSpace(token)
	return &clone
}

// HasToken reports whether the client carries a bearer credential.
func (c *Client) HasToken() bool {
	return c != nil && c.token != ""
}

type request struct {
	operation   string
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     io.Reader
	contentType string
	auth        bool
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "api client not configured")
	}
	if req.auth && c.token == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "please sign in to continue")
	}

	body := req.rawBody
	contentType := req.contentType
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+req.operation+" request")
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.buildURL(req.path, req.query), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+req.operation+" request")
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(requestIDHeader, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"operation":  req.operation,
		"method":     req.method,
		"path":       req.path,
		"request_id": requestID,
	})

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(started)
	c.metrics.ObserveDuration(req.operation, elapsed)
	if err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeTransport, err, pkgerrors.MetadataFor(pkgerrors.CodeTransport).PublicMessage)
		c.recordFailure(logCtx, req.operation, elapsed, wrapped)
		return wrapped
	}
	defer func() { _ = resp.Body.Close() }()

	logCtx = c.logg.WithField(logCtx, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.recordFailure(logCtx, req.operation, elapsed, apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+req.operation+" response").WithStatus(resp.StatusCode)
			c.recordFailure(logCtx, req.operation, elapsed, wrapped)
			return wrapped
		}
	}

	c.metrics.IncSuccess(req.operation)
	c.logg.Debug(c.logg.WithField(logCtx, "duration_ms", elapsed.Milliseconds()), "api request completed")
	return nil
}

func (c *Client) recordFailure(ctx context.Context, operation string, elapsed time.Duration, err *pkgerrors.Error) {
	c.metrics.IncFailure(operation, string(err.Code()))
	ctx = c.logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	c.logg.Warn(c.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds()), "api request failed")
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

func pathEscape(segment string) string {
	return url.PathEscape(strings.TrimSpace(segment))
}

// unwrap decodes raw as T, accepting either the bare resource or an object
// that nests it under key.
func unwrap[T any](raw json.RawMessage, key string) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if nested, ok := envelope[key]; ok && len(nested) > 0 && nested[0] == '{' {
			err := json.Unmarshal(nested, &out)
			return out, err
		}
	}
	err := json.Unmarshal(raw, &out)
	return out, err
}
