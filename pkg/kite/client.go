// Package kite implements a client for the Zerodha Kite Connect HTTP API,
// including the TOTP-based automated login flow.
package kite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dhanvan/kitefeed/pkg/logger"
	"github.com/jpillora/backoff"
)

const (
	// DefaultAPIURL is the Kite Connect REST endpoint
	DefaultAPIURL = "https://api.kite.trade"
	// DefaultLoginBaseURL is the interactive login host
	DefaultLoginBaseURL = "https://kite.zerodha.com"

	kiteVersion    = "3"
	requestTimeout = 15 * time.Second
	maxAttempts    = 4
)

// APIError is an error payload returned by the broker API.
type APIError struct {
	Code      int
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kite api error (%d %s): %s", e.Code, e.ErrorType, e.Message)
}

// envelope is the standard Kite response wrapper
type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
}

// Client talks to the Kite Connect API on behalf of one user.
type Client struct {
	apiKey      string
	apiSecret   string
	userID      string
	password    string
	totpKey     string
	accessToken string

	apiURL   string
	loginURL string

	http *http.Client
	log  logger.Logger

	// retryWait returns how long to wait before re-submitting a
	// rejected TOTP code. Overridden in tests.
	retryWait func(now time.Time) time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithBaseURL points the client at a custom API endpoint, used in tests
func WithBaseURL(apiURL, loginURL string) Option {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(apiURL, "/")
		c.loginURL = strings.TrimRight(loginURL, "/")
	}
}

// WithAccessToken resumes an already established session
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Credentials carries everything the login flow needs.
type Credentials struct {
	UserID    string
	Password  string
	APIKey    string
	APISecret string
	TOTPKey   string
}

// NewClient creates a Kite API client for the given credentials.
func NewClient(creds Credentials, log logger.Logger, options ...Option) *Client {
	client := &Client{
		apiKey:    creds.APIKey,
		apiSecret: creds.APISecret,
		userID:    creds.UserID,
		password:  creds.Password,
		totpKey:   creds.TOTPKey,
		apiURL:    DefaultAPIURL,
		loginURL:  DefaultLoginBaseURL,
		http:      &http.Client{Timeout: requestTimeout},
		log:       log,
		retryWait: nextTOTPWindow,
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// SetAccessToken installs the access token used by authenticated calls.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// AccessToken returns the current access token, empty if not logged in.
func (c *Client) AccessToken() string {
	return c.accessToken
}

// newRetry creates a backoff with sensible defaults
func newRetry() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    200 * time.Millisecond,
		Max:    2 * time.Second,
		Jitter: true,
	}
}

// retryable reports whether the request should be retried for the
// given status code
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// do performs an authenticated API request with bounded retries and
// unmarshals the data envelope into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	retry := newRetry()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := retry.Duration()
			c.log.WithFields(map[string]any{
				"path": path,
				"wait": wait.String(),
			}).Warn("retrying request")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		status, body, err := c.roundTrip(ctx, method, path, form)
		if err != nil {
			lastErr = err
			continue
		}

		if retryable(status) {
			lastErr = &APIError{Code: status, ErrorType: "ServerError", Message: http.StatusText(status)}
			continue
		}

		return decodeEnvelope(status, body, out)
	}

	return fmt.Errorf("request to %s failed after %d attempts: %w", path, maxAttempts, lastErr)
}

// roundTrip issues one request and returns the raw status and body
func (c *Client) roundTrip(ctx context.Context, method, path string, form url.Values) (int, []byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("X-Kite-Version", kiteVersion)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "token "+c.apiKey+":"+c.accessToken)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}

	return res.StatusCode, body, nil
}

// decodeEnvelope unwraps the standard response envelope, converting
// broker error payloads into *APIError
func decodeEnvelope(status int, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", status, err)
	}

	if env.Status == "error" || status >= http.StatusBadRequest {
		return &APIError{
			Code:      status,
			ErrorType: env.ErrorType,
			Message:   env.Message,
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}

	return nil
}
