// Package client talks to the external search service.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/httpclient"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/tracing"
)

const (
	serviceName = "search service"

	// maxResponseBody bounds a single XML answer.
	maxResponseBody = 16 << 20

	aliveBody = "alive"
)

var requestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "search_service_request_duration_seconds",
		Help:    "Duration of requests to the search service",
		Buckets: []float64{.025, .05, .1, .25, .5, 1, 2, 5},
	},
	[]string{"endpoint", "outcome"},
)

// Doer executes requests against the search service.
type Doer interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client sends built queries to the search service.
type Client struct {
	http         Doer
	baseURL      string
	shopkey      string
	aliveTimeout time.Duration
	logger       *slog.Logger
	tracer       trace.Tracer
}

// New creates a client for the service at baseURL.
func New(doer Doer, baseURL, shopkey string, aliveTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		http:         doer,
		baseURL:      strings.TrimRight(baseURL, "/"),
		shopkey:      shopkey,
		aliveTimeout: aliveTimeout,
		logger:       logger,
		tracer:       tracing.Tracer("github.com/findologic/plugin-shopware-5-sub000/internal/client"),
	}
}

// RequestURL returns the URL Search would request for b.
func (c *Client) RequestURL(b *query.Builder) string {
	return b.URL(c.baseURL)
}

// Search sends b and returns the raw XML body. Every failure is reported as
// a SERVICE_UNAVAILABLE AppError.
func (c *Client) Search(ctx context.Context, b *query.Builder) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "searchservice."+b.Endpoint(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("search.endpoint", b.Endpoint())),
	)
	defer span.End()

	start := time.Now()
	body, err := c.get(ctx, c.RequestURL(b))
	requestDuration.WithLabelValues(b.Endpoint(), outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search service request failed")
		return nil, apperrors.ServiceUnavailable(serviceName, err)
	}
	span.SetAttributes(attribute.Int("search.response_bytes", len(body)))
	return body, nil
}

// Alive reports whether the service answers its alive check in time.
func (c *Client) Alive(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.aliveTimeout)
	defer cancel()

	u := c.baseURL + "/" + query.EndpointAlive + "?shopkey=" + url.QueryEscape(c.shopkey)

	start := time.Now()
	body, err := c.get(ctx, u)
	requestDuration.WithLabelValues(query.EndpointAlive, outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.WarnContext(ctx, "search service alive check failed", slog.String("error", err.Error()))
		return false
	}
	return strings.TrimSpace(string(body)) == aliveBody
}

// Ping is Alive as an error, for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Alive(ctx) {
		return fmt.Errorf("%s is not alive", serviceName)
	}
	return nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", serviceName, err)
	}
	return body, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, httpclient.ErrCircuitOpen):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
