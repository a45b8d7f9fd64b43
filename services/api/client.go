package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/NVK2907/sms-app-sub000/core"
)

// TokenSource provides the bearer token of outgoing requests.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Error is a failed REST call: a transport error (Status 0), a non-2xx status or an
// envelope with success=false.
type Error struct {
	Status  int
	Message string // backend message, if any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("api: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("api: status %d", e.Status)
	}
}

func (e *Error) UserMessage() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsStatus tells whether err is an *Error with one of the statuses.
func IsStatus(err error, statuses ...int) bool {
	var aErr *Error
	if !errors.As(err, &aErr) {
		return false
	}
	for _, s := range statuses {
		if aErr.Status == s {
			return true
		}
	}
	return false
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (env envelope) message() string {
	if msg := strings.TrimSpace(env.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(env.Error)
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RequestIDHeader string
	Tokens          TokenSource
	HTTPClient      *http.Client
	Logger          core.Logger
}

// Client talks JSON to the school management REST backend.
type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	requestIDHeader string
	tokens          TokenSource
	logger          core.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = core.Conf.API.BaseURL
	}
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid API base URL: %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = core.Conf.API.Timeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.RequestIDHeader == "" {
		opts.RequestIDHeader = core.Conf.API.RequestIDHeader
	}
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	return &Client{
		baseURL:         u,
		httpClient:      opts.HTTPClient,
		requestIDHeader: opts.RequestIDHeader,
		tokens:          opts.Tokens,
		logger:          opts.Logger,
	}, nil
}

// WithTokens returns a copy of the client authenticating with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// do sends one request. Enveloped responses are unwrapped: `out` receives the data
// member. Responses without an envelope are decoded as a whole.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, reqBody, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, reqID)
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api: request failed", err, map[string]interface{}{"method": method, "path": path, "requestId": reqID})
		return &Error{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Err: errors.Wrap(err, "reading response")}
	}

	var env envelope
	enveloped := json.Unmarshal(respBody, &env) == nil

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		aErr := &Error{Status: resp.StatusCode}
		if enveloped {
			aErr.Message = env.message()
		}
		c.logger.Debug("api: error response", aErr, map[string]interface{}{"method": method, "path": path, "requestId": reqID})
		return aErr
	}
	if enveloped && env.Success != nil && !*env.Success {
		return &Error{Status: resp.StatusCode, Message: env.message()}
	}

	if out == nil {
		return nil
	}
	data := respBody
	if enveloped && env.Success != nil {
		data = env.Data
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response", method, path)
	}
	return nil
}
