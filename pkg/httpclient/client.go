package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// drainLimit is how much of a discarded response is read so the connection
// can go back to the pool.
const drainLimit = 64 << 10

var upstreamRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "searchbridge_upstream_retries_total",
	Help: "Upstream requests retried, by host and reason",
}, []string{"host", "reason"})

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
	UserAgent       string
	// Accept is sent when the request sets none. The search service answers
	// XML.
	Accept string
}

// DefaultConfig returns defaults for the search service: a storefront request
// waits on it, so there is one short retry at most.
func DefaultConfig() Config {
	return Config{
		Timeout:         3 * time.Second,
		MaxRetries:      1,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    500 * time.Millisecond,
		MaxConnsPerHost: 50,
		UserAgent:       "searchbridge",
		Accept:          "application/xml, text/plain;q=0.9",
	}
}

// Client is an http.Client with pooled keep-alive connections and bounded
// retries of idempotent requests.
type Client struct {
	http *http.Client
	cfg  Config
}

// New builds a client from cfg.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		http: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Do sends req. GET and HEAD are retried on network errors and on 5xx other
// than 501, waiting RetryWaitMin doubled per attempt up to RetryWaitMax, or
// the server's Retry-After when it is shorter than RetryWaitMax.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.Accept != "" && req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", c.cfg.Accept)
	}

	retries := c.cfg.MaxRetries
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		retries = 0
	}

	wait := c.cfg.RetryWaitMin
	for attempt := 0; ; attempt++ {
		resp, err := c.http.Do(req)
		last := attempt >= retries

		switch {
		case err != nil:
			if last || !isRetryableError(err) {
				return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
			}
			upstreamRetries.WithLabelValues(req.URL.Host, "network").Inc()
		case retryableStatus(resp.StatusCode) && !last:
			if d, ok := retryAfter(resp); ok && d < c.cfg.RetryWaitMax {
				wait = d
			}
			drain(resp)
			upstreamRetries.WithLabelValues(req.URL.Host, strconv.Itoa(resp.StatusCode)).Inc()
		default:
			return resp, nil
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		wait = min(2*wait, c.cfg.RetryWaitMax)
	}
}

// Get sends a GET to url.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

func retryableStatus(code int) bool {
	return code >= 500 && code != http.StatusNotImplemented
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}

// isRetryableError reports network errors that are not cancellations.
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
