package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"projectboard/domain"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:4000"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 32 << 20 // 32 MiB
	headerRequestID = "X-Request-ID"
)

// TokenSource yields the bearer token to attach to outgoing requests. An
// empty token means the request is sent without credentials.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client issues JSON requests against the project manager REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	tokens    TokenSource
	logger    *log.Logger
	userAgent string
	timeout   time.Duration
	maxBody   int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is used as
// given; a nil client keeps the default.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithTokenSource attaches stored credentials to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger used for request metrics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTimeout sets the per-request timeout of the default HTTP client. It has
// no effect on a client supplied with WithHTTPClient.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a Client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{BaseURL: baseURL, timeout: defaultTimeout, maxBody: maxResponseSize}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: c.timeout}
	}
	return c
}

// SetTokenSource swaps the credential source after construction. The session
// store is usually built after the client it talks through.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, path, body, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, path, body, out)
}

// Delete issues a DELETE request. out may be nil when the endpoint answers
// with an empty body.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, path, nil, out)
}

// call performs one request. route is the path template used for metrics so
// ids do not explode the cardinality of the route attribute.
func (c *Client) call(ctx context.Context, method, route, path string, body, out any) (err error) {
	metrics, ctx := newRequestMetrics(ctx, c.logger, method, route)
	defer func() { metrics.Finish(err) }()

	op := method + " " + path

	var reader io.Reader
	if body != nil {
		encodeStart := time.Now()
		payload, encErr := sonic.ConfigStd.Marshal(body)
		metrics.ObserveEncode(time.Since(encodeStart))
		if encErr != nil {
			metrics.SetErrorStage("encode_request")
			return &domain.TransportError{Op: op, Err: fmt.Errorf("encode body: %w", encErr)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		metrics.SetErrorStage("build_request")
		return &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)
	metrics.SetRequestID(requestID)
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	sendStart := time.Now()
	resp, err := c.HTTP.Do(req)
	metrics.ObserveRoundTrip(time.Since(sendStart))
	if err != nil {
		metrics.SetErrorStage("transport")
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	metrics.SetStatus(resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.maxBody)+1))
	if err != nil {
		metrics.SetErrorStage("read_response")
		return &domain.TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(data) > c.maxBody {
		metrics.SetErrorStage("read_response")
		return &domain.TransportError{Op: op, Err: fmt.Errorf("response body exceeds %d bytes", c.maxBody)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SetErrorStage("status")
		return statusError(resp.StatusCode, route, data)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		metrics.SetErrorStage("decode_response")
		return &domain.TransportError{Op: op, Err: errors.New("empty response body")}
	}
	decodeStart := time.Now()
	err = sonic.ConfigStd.Unmarshal(data, out)
	metrics.ObserveDecode(time.Since(decodeStart))
	if err != nil {
		metrics.SetErrorStage("decode_response")
		// The decoder error quotes the body; keep it in the debug log only.
		if c.logger != nil {
			c.logger.WithError(err).WithField("route", route).Debug("apiclient: undecodable response body")
		}
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode body: malformed JSON response (%d bytes)", len(data))}
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// backendMessage extracts the human readable message from an error body.
// Bodies that are not JSON are ignored.
func backendMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var body errorBody
	if err := sonic.ConfigStd.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func statusError(status int, route string, data []byte) error {
	msg := backendMessage(data)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.AuthenticationError{Status: status, Message: msg}
	case http.StatusNotFound:
		return &domain.NotFoundError{Resource: resourceForRoute(route), Message: msg}
	default:
		return &domain.APIError{Status: status, Message: msg}
	}
}

func resourceForRoute(route string) string {
	switch {
	case strings.Contains(route, "/tasks"):
		return "task"
	case strings.HasPrefix(route, "/api/projects"):
		return "project"
	case strings.HasPrefix(route, "/api/users"):
		return "user"
	}
	return ""
}
