// Package crm provides a resilient REST client for the upstream request CRM
package crm

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "chronicle/internal/platform/errors"
	"chronicle/internal/platform/logger"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUA        = "chronicle-capture"
	defaultMaxRetry  = 5
	defaultRetryBase = 500 * time.Millisecond
	defaultPageSize  = 200
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Bearer token for the upstream API; empty means unauthenticated
	Token string

	// Retry config for transient and rate limited responses
	MaxRetries int
	RetryBase  time.Duration

	// PageSize bounds list endpoint pages
	PageSize int
}

// Client is a minimal CRM REST client with retry and rate limit handling
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults.
// BaseURL is required; there is no public default host for a tenant CRM
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("crm"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Do issues a request with auth headers, retries, and rate limit handling
func (c *Client) Do(ctx context.Context, method, path string) (*http.Response, error) {
	if c.opts.BaseURL == "" {
		return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "crm base url not configured")
	}
	url := c.opts.BaseURL + path
	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "crm new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		if c.opts.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.Token)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if !c.shouldRetry(attempts) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "crm do failed")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("crm transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("crm http response")

		switch resp.StatusCode {
		case http.StatusOK:
			return resp, nil
		case http.StatusUnauthorized, http.StatusForbidden:
			// auth problems never heal on retry
			_ = drainAndClose(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeUnauthorized, "crm auth rejected status %d", resp.StatusCode)
		case http.StatusTooManyRequests:
			wait := retryAfter(resp.Header, c.now())
			if wait <= 0 {
				wait = c.backoff(attempts)
			}
			if !c.shouldRetry(attempts) {
				_ = drainAndClose(resp.Body)
				return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "crm rate limited")
			}
			c.log.Warn().Dur("sleep", wait).Msg("crm rate limited backing off")
			_ = drainAndClose(resp.Body)
			c.sleep(wait)
			attempts++
			continue
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if !c.shouldRetry(attempts) {
				_ = drainAndClose(resp.Body)
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "crm transient server error")
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("crm transient error retrying")
			_ = drainAndClose(resp.Body)
			c.sleep(back)
			attempts++
			continue
		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "crm unexpected status %d body %s", resp.StatusCode, string(body))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase
	// simple exponential with cap
	ms := int64(d / time.Millisecond)
	ms = ms << uint(attempt)
	max := int64(30 * time.Second / time.Millisecond)
	if ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

// retryAfter honors Retry-After in either delta-seconds or HTTP-date form
func retryAfter(h http.Header, now time.Time) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return at.Sub(now)
	}
	return 0
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<20))
	return rc.Close()
}
