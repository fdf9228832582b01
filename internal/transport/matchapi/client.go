// Package matchapi is the HTTP client of the remote match service.
package matchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
)

const (
	requestIDHeader = "X-Request-Id"
	maxErrorBody    = 512
)

// Observer receives one call per finished HTTP exchange. Code is 0 when no response was received.
type Observer interface {
	ObserveRequest(route string, code int, elapsed time.Duration)
}

type Client struct {
	baseURL  string
	http     *fasthttp.Client
	observer Observer

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithRetry - attempts per idempotent (GET) request on transport errors and 5xx.
func WithRetry(maxAttempts int) Option {
	return func(c *Client) { c.retryMax = maxAttempts }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithDial - replaces the dialer; used to talk to in-memory listeners.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 5 * time.Second,
		retryMax:       2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doJSON - performs one call. Any non-2xx answer and the 202 lobby answer come back as *apperror.StatusError,
// network failures wrap apperror.ErrTransport.
func (c *Client) doJSON(ctx context.Context, method, route, path string, in any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	retry := method == fasthttp.MethodGet
	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		started := time.Now()
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			c.observe(route, 0, started)
			lastErr = fmt.Errorf("%w: %s %s: %w", apperror.ErrTransport, method, path, err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		c.observe(route, status, started)

		// 202 is the lobby answer of POST /matches: no match yet
		if status < 200 || status >= 300 || status == fasthttp.StatusAccepted {
			lastErr = &apperror.StatusError{Code: status, Body: truncate(string(resp.Body()), maxErrorBody)}
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("%w: decode %s: %w", apperror.ErrMalformedResponse, path, err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) observe(route string, code int, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveRequest(route, code, time.Since(started))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
