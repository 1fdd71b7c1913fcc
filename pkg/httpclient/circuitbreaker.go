package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
)

// BreakerConfig tunes when the breaker opens and how it probes recovery.
type BreakerConfig struct {
	Name string
	// HalfOpenRequests may pass while probing an open breaker.
	HalfOpenRequests uint32
	// Interval clears the closed state's counts.
	Interval time.Duration
	// OpenFor is how long the breaker rejects before probing.
	OpenFor      time.Duration
	FailureRatio float64
	// MinRequests must be seen before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig opens after half of at least five requests failed
// and probes again after 30s.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		HalfOpenRequests: 1,
		Interval:         time.Minute,
		OpenFor:          30 * time.Second,
		FailureRatio:     0.5,
		MinRequests:      5,
	}
}

// ErrCircuitOpen is wrapped into errors for requests the open breaker rejected.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "searchbridge_breaker_state",
			Help: "Breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	breakerRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchbridge_breaker_rejected_total",
			Help: "Requests rejected without reaching the upstream",
		},
		[]string{"name"},
	)
)

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Breaker guards a Client. Upstream 5xx answers and transport errors count as
// failures; 4xx answers are returned to the caller untouched.
type Breaker struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[*http.Response]
	name   string
	logger *slog.Logger
}

func NewBreaker(client *Client, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// A canceled storefront request says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &Breaker{
		client: client,
		cb:     gobreaker.NewCircuitBreaker[*http.Response](settings),
		name:   cfg.Name,
		logger: logger,
	}
}

// Do sends req through the breaker. A 5xx answer is consumed and returned as
// a ServiceUnavailable error.
func (b *Breaker) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, ParseResponseError(resp, b.name)
		}
		return resp, nil
	})
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerRejectedTotal.WithLabelValues(b.name).Inc()
		return nil, apperrors.ServiceUnavailable(b.name, err)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (b *Breaker) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return b.Do(ctx, req)
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Check fails while the breaker is open. It is meant for readiness probes.
func (b *Breaker) Check(context.Context) error {
	if b.cb.State() == gobreaker.StateOpen {
		return apperrors.ServiceUnavailable(b.name, ErrCircuitOpen)
	}
	return nil
}
