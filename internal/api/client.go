// Package api implements the rate-limited HTTP client and the platform
// REST operations course-sync publishes through.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bianoble/course-sync/internal/logging"
)

// Default pacing. Every throttleWindow-th counted request pauses for
// throttlePause before being sent; a 429 or transient-auth response is
// retried once after retryWait.
const (
	defaultThrottleWindow = 50
	defaultThrottlePause  = 60 * time.Second
	defaultRetryWait      = 60 * time.Second
)

// HTTPClient is the minimal HTTP interface the client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPError is returned for any non-2xx response that is not recovered by
// the transient-retry path.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// Client issues platform requests with a fixed-window self-throttle shared
// across the whole run. It is not safe for concurrent use beyond the atomic
// request counter; the publisher is single-threaded by design.
type Client struct {
	BaseURL string
	Token   string
	HTTP    HTTPClient

	// ThrottleWindow and ThrottlePause override the default cadence
	// (every 50th request sleeps 60s). Zero values mean defaults.
	ThrottleWindow int
	ThrottlePause  time.Duration

	// RetryWait is the fixed backoff before the single transient retry.
	RetryWait time.Duration

	// Sleep is the cooperative delay hook. Defaults to a context-aware
	// time.Sleep; tests inject a no-op.
	Sleep func(ctx context.Context, d time.Duration)

	log   zerolog.Logger
	count atomic.Uint64
}

// New creates a Client for the given platform origin and bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    http.DefaultClient,
		log:     logging.With("api"),
	}
}

// Requests reports how many counted platform calls have been made.
func (c *Client) Requests() uint64 {
	return c.count.Load()
}

// Request performs one counted platform call. body may be nil, a string or
// []byte of already-encoded JSON, or any value to be JSON-encoded. When out
// is non-nil the response body is decoded into it. Non-2xx responses yield
// *HTTPError, except 429/401 which are retried once after RetryWait.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	c.throttle(ctx)

	encoded, contentType, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	respBody, err := c.send(ctx, method, path, encoded, contentType)
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// Upload performs one counted multipart upload of a single file field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, content []byte, out any) error {
	c.throttle(ctx)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("building multipart body: %w", err)
	}

	respBody, err := c.send(ctx, http.MethodPut, path, buf.Bytes(), w.FormDataContentType())
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding upload %s response: %w", path, err)
		}
	}
	return nil
}

// send issues the request, retrying once after RetryWait when the platform
// answers 429 or a transient 401. The body is re-sent verbatim on retry; it
// was already serialized exactly once, so the retry cannot double-encode.
func (c *Client) send(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	var respBody []byte

	attempt := func() error {
		data, err := c.roundTrip(ctx, method, path, body, contentType)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && transientStatus(httpErr.Status) {
				c.log.Warn().Int("status", httpErr.Status).Str("path", path).
					Dur("wait", c.retryWait()).Msg("transient response, retrying")
				return err
			}
			return backoff.Permanent(err)
		}
		respBody = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait()), 1), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("authorization", c.Token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// throttle counts one unit of platform work and sleeps on every
// ThrottleWindow-th call. The counter is shared across all manifest
// branches; it intentionally front-runs the server's own limiter.
func (c *Client) throttle(ctx context.Context) {
	n := c.count.Add(1)
	window := uint64(c.ThrottleWindow)
	if window == 0 {
		window = defaultThrottleWindow
	}
	if n%window != 0 {
		return
	}

	pause := c.ThrottlePause
	if pause == 0 {
		pause = defaultThrottlePause
	}
	c.log.Info().Uint64("requests", n).Dur("pause", pause).Msg("request window reached, pausing")
	c.sleep(ctx, pause)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (c *Client) retryWait() time.Duration {
	if c.RetryWait != 0 {
		return c.RetryWait
	}
	return defaultRetryWait
}

// transientStatus reports whether a status is recovered by the single
// fixed-backoff retry: the platform's rate limit, or the short-lived 401
// it serves while rotating tokens.
func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusUnauthorized
}

// encodeBody serializes a request body exactly once. Strings and byte
// slices are treated as already-encoded JSON text so a retry (or a caller
// holding pre-rendered JSON) cannot double-encode them.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "application/json", nil
	case string:
		return []byte(b), "application/json", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}
