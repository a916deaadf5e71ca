// Package transport provides the HTTP client shared by the remote
// collaborators. It applies authentication, cooperates with rate limiting
// (a "too many requests" response sleeps for the server-directed duration and
// retries the same request) and retries transient transport failures with
// linearly increasing backoff. Rate-limit waits are not failures and do not
// consume retry budget.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/errors"
	"github.com/farmaciaslf/medisync/pkg/logging"
)

// Client wraps an HTTP client with authentication and retry behavior.
type Client struct {
	http    *http.Client
	auth    Authenticator
	service string
	retries int
	sleep   func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRetries overrides the transient-failure retry budget.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithSleep overrides the backoff sleeper, used by tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a transport client for the named service with the given
// authenticator.
func New(service string, auth Authenticator, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:    auth,
		service: service,
		retries: constants.MaxRetries,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON marshals body, posts it to url with credential applied, and
// decodes the JSON response into target. Headers, when non-nil, are added to
// every attempt.
func (c *Client) PostJSON(ctx context.Context, url string, body any, credential string, headers http.Header, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.WrapParse("json", "request body", err)
	}

	resp, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for key, values := range headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
		if credential != "" {
			c.auth.Apply(req, credential)
		}
		return req, nil
	})
	if err != nil {
		return err
	}

	return c.decode(resp, url, target)
}

// do executes a request with rate-limit cooperation and bounded retries on
// transport errors. The request is rebuilt per attempt because bodies are
// consumed on send.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			backoff := constants.RetryBackoffBase + time.Duration(attempt-1)*constants.RetryBackoffStep
			logging.Warn().
				Str("service", c.service).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying request")
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		req, err := build()
		if err != nil {
			return nil, errors.WrapIO("create", "request", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Timeouts and connection errors are equivalent here: retry.
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp)
			_ = resp.Body.Close()
			logging.Warn().
				Str("service", c.service).
				Dur("wait", wait).
				Msg("Rate limited, waiting before retry")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			// Not an application failure: retry without consuming budget.
			attempt--
			continue
		}

		return resp, nil
	}

	return nil, errors.WrapAPI(c.service, 0, lastErr)
}

// decode reads the response body into target, converting non-200 statuses
// into structured API errors.
func (c *Client) decode(resp *http.Response, endpoint string, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &errors.APIError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			Message:    truncate(string(body), 300),
		}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// retryAfter extracts the server-directed wait from a rate-limit response,
// falling back to the default when unspecified or malformed.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return constants.DefaultRateLimitWait
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds <= 0 {
		return constants.DefaultRateLimitWait
	}
	return time.Duration(seconds * float64(time.Second))
}

// truncate shortens s for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
