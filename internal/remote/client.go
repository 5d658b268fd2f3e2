// Package remote is the shared HTTP plumbing of the reputation, resolution and
// security collaborators: rate limiting, bounded retry with exponential
// backoff on 429/5xx, and a normalized error taxonomy.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/arshiaxbt/Aura/internal/logging"
)

// MaxBody caps raw bodies read by GetBody.
const MaxBody = 8 << 20

// Options configures a Client. Zero values pick conservative defaults.
type Options struct {
	Service    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// RateLimit is requests per second; zero or less is unlimited.
	RateLimit int
	Retries   int
	Backoff   time.Duration
	Header    http.Header
}

// Client issues JSON requests against one remote service.
type Client struct {
	service string
	hc      *http.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	header  http.Header
	log     *slog.Logger
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	burst := 1
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		burst = opts.RateLimit
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	service := opts.Service
	if service == "" {
		service = "remote"
	}
	return &Client{
		service: service,
		hc:      hc,
		limiter: rate.NewLimiter(limit, burst),
		retries: retries,
		backoff: backoff,
		header:  opts.Header,
		log:     logging.Component("remote").With("service", service),
	}
}

// Service names the remote in errors and logs.
func (c *Client) Service() string { return c.service }

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, out)
}

// GetBody fetches url and returns the raw body, capped at MaxBody bytes.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	var b []byte
	if err := c.do(ctx, http.MethodGet, url, nil, &b); err != nil {
		return nil, err
	}
	return b, nil
}

// PostJSON posts body as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return NewError(Internal, c.service, "encode request", err)
	}
	return c.do(ctx, http.MethodPost, url, b, out)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var lastErr *Error
	attempts := c.retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return NewError(Timeout, c.service, "rate limiter", err)
		}

		lastErr = c.once(ctx, method, url, body, out)
		if lastErr == nil {
			return nil
		}
		if !lastErr.Retryable || ctx.Err() != nil {
			break
		}
		if attempt < attempts-1 {
			d := c.backoff * (1 << attempt)
			c.log.Debug("retrying request", "attempt", attempt+1, "delay", d, "err", lastErr)
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return NewError(Timeout, c.service, "cancelled during backoff", ctx.Err())
			case <-t.C:
			}
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, out any) *Error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return NewError(Internal, c.service, "build request", err)
	}
	if _, raw := out.(*[]byte); raw {
		req.Header.Set("Accept", "*/*")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return NewError(Timeout, c.service, "request", err)
		}
		return NewError(Outage, c.service, "request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e := NewError(categoryForStatus(resp.StatusCode), c.service, fmt.Sprintf("http %d: %s", resp.StatusCode, bytes.TrimSpace(b)), nil)
		e.Status = resp.StatusCode
		return e
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBody))
		if err != nil {
			return NewError(Outage, c.service, "read body", err)
		}
		*raw = b
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		e := NewError(BadData, c.service, "decode response", err)
		e.Status = resp.StatusCode
		return e
	}
	return nil
}
