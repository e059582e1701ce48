// Package httpds fetches remote dataset parts over HTTP(S) and stages them
// on local disk so the format readers can seek.
//
// A failed GET is final unless the pipeline sets http.max_retries. With
// retries enabled, transport errors and 429/5xx answers are tried again
// after an exponential pause.
package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultTimeout   = 10 * time.Minute
	defaultFirstWait = 200 * time.Millisecond
	defaultMaxWait   = 5 * time.Second
)

// Config holds the client knobs. Zero fields take the package defaults
// (10m timeout, no retries, 200ms first pause capped at 5s).
type Config struct {
	// Timeout bounds one request including the body read, so it has to
	// cover the largest monthly archive.
	Timeout time.Duration

	// MaxRetries counts attempts after the first one.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	InsecureSkipVerify bool

	// BaseHeaders go on every request; per-call headers replace them key by key.
	BaseHeaders http.Header

	// Transport replaces the default transport, mostly for tests.
	Transport http.RoundTripper
}

// Client issues GET requests for dataset parts.
type Client struct {
	hc      *http.Client
	retries int
	first   time.Duration
	ceiling time.Duration
	headers http.Header

	// wait pauses between attempts; tests swap it for a no-op.
	wait func(context.Context, time.Duration) error
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		retries: max(cfg.MaxRetries, 0),
		first:   cfg.InitialBackoff,
		ceiling: cfg.MaxBackoff,
		headers: cfg.BaseHeaders.Clone(),
		wait:    pause,
	}
	if c.hc.Timeout <= 0 {
		c.hc.Timeout = defaultTimeout
	}
	if c.first <= 0 {
		c.first = defaultFirstWait
	}
	if c.ceiling <= 0 {
		c.ceiling = defaultMaxWait
	}
	if c.hc.Transport == nil {
		c.hc.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec // opt-in per pipeline
		}
	}
	if c.headers == nil {
		c.headers = http.Header{}
	}
	return c
}

// Get fetches url. A response with a final status (anything but 429/5xx)
// is returned as is, even 4xx; the caller closes its body. When attempts run
// out on a transient status the error names that status.
func (c *Client) Get(ctx context.Context, url string, hdr http.Header) (*http.Response, error) {
	if url == "" {
		return nil, errors.New("httpds: empty url")
	}

	var last error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req, err := c.request(ctx, url, hdr)
		if err != nil {
			return nil, err
		}

		resp, err := c.hc.Do(req)
		switch {
		case err != nil:
			last = err
		case transient(resp.StatusCode):
			resp.Body.Close()
			last = fmt.Errorf("httpds: GET %s: %s", url, resp.Status)
		default:
			return resp, nil
		}

		if attempt == c.retries {
			return nil, last
		}
		if err := c.wait(ctx, backoff(c.first, attempt, c.ceiling)); err != nil {
			return nil, err
		}
	}
}

func (c *Client) request(ctx context.Context, url string, hdr http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	req.Header = c.headers.Clone()
	for k, vs := range hdr {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return req, nil
}

// transient reports whether a status is worth another attempt.
func transient(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoff is first doubled attempt times, capped at ceiling.
func backoff(first time.Duration, attempt int, ceiling time.Duration) time.Duration {
	d := first
	for i := 0; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	return min(d, ceiling)
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
