// SPDX-License-Identifier: MIT

// Package dashboard fetches the destination list from the dashboard API.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/streamfork/relayd/internal/log"
	"github.com/streamfork/relayd/internal/metrics"
	"github.com/streamfork/relayd/internal/platform/httpx"
	"github.com/streamfork/relayd/internal/relay/model"
	"github.com/streamfork/relayd/internal/version"
)

// Sentinel errors for errors.Is checks at the boundary.
var (
	// ErrUnavailable marks transport failures, timeouts and 5xx responses.
	ErrUnavailable = errors.New("dashboard: unreachable or upstream error")
	// ErrBadResponse marks unexpected status codes and malformed payloads.
	ErrBadResponse = errors.New("dashboard: invalid response")
)

const (
	defaultTimeout        = 5 * time.Second
	defaultRetries        = 2
	defaultBackoff        = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultRateLimit      = 5
	defaultRateLimitBurst = 10
	maxBodyBytes          = 4 << 20
)

// Options configures the dashboard client behavior.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	return opts
}

// Client talks to the dashboard API with bearer auth, client-side rate
// limiting and bounded retries.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a dashboard client for the given base URL and bearer token.
func New(baseURL, token string, opts Options) *Client {
	opts = normalizeOptions(opts)

	hc := httpx.NewClient(opts.Timeout)
	hc.Transport = otelhttp.NewTransport(hc.Transport)

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
		http:       hc,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		logger:     log.WithComponent("dashboard"),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

// Destinations fetches the configured relay destinations. Transport errors
// and 5xx responses are retried with jittered backoff; any other non-200
// response aborts immediately.
func (c *Client) Destinations(ctx context.Context) ([]model.Destination, error) {
	resp, err := c.doGet(ctx, c.baseURL+"/destinations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var dests []model.Destination
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&dests); err != nil {
		return nil, fmt.Errorf("%w: decode destinations: %v", ErrBadResponse, err)
	}
	return dests, nil
}

func (c *Client) doGet(ctx context.Context, rawURL string) (*http.Response, error) {
	maxAttempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "relayd/"+version.Version)

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.IncDashboardRequest("")
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("dashboard request failed")
		} else {
			metrics.IncDashboardRequest(strconv.Itoa(resp.StatusCode))
			switch {
			case resp.StatusCode == http.StatusOK:
				return resp, nil
			case resp.StatusCode >= http.StatusInternalServerError:
				drain(resp)
				lastErr = fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
				c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("dashboard upstream error")
			default:
				drain(resp)
				return nil, fmt.Errorf("%w: unexpected status %d", ErrBadResponse, resp.StatusCode)
			}
		}

		if attempt == maxAttempts {
			break
		}
		if err := sleepWithContext(ctx, c.backoffFor(attempt-1)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return nil, lastErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	_ = resp.Body.Close()
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
