package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric extracts the first metric of c whose labels include labels.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		got := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range labels {
			if got[k] != v {
				match = false
				break
			}
		}
		if match {
			return d
		}
	}
	return nil
}

func serveWithChi(mw func(http.Handler) http.Handler, handler http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/api/v1/navigation/{categoryID}", handler)
	return r
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("count-svc"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"3", "5", "7"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/navigation/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	m := collectMetric(httpRequestsTotal, map[string]string{
		"service": "count-svc", "method": "GET", "path": "/api/v1/navigation/{categoryID}", "status": "200",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(3), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_DurationAndSize(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("hist-svc"), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<findologic/>"))
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/navigation/3", nil))

	d := collectMetric(httpRequestDuration, map[string]string{"service": "hist-svc", "status": "200"})
	require.NotNil(t, d)
	assert.Equal(t, uint64(1), d.GetHistogram().GetSampleCount())

	s := collectMetric(httpResponseBytes, map[string]string{"service": "hist-svc"})
	require.NotNil(t, s)
	assert.Equal(t, float64(len("<findologic/>")), s.GetHistogram().GetSampleSum())
}

func TestPrometheusMetrics_InFlightGauge(t *testing.T) {
	inFlight := float64(-1)
	handler := serveWithChi(PrometheusMetrics("inflight-svc"), func(w http.ResponseWriter, r *http.Request) {
		if m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"}); m != nil {
			inFlight = m.GetGauge().GetValue()
		}
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/navigation/3", nil))

	assert.Equal(t, float64(1), inFlight)
	m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"})
	require.NotNil(t, m)
	assert.Zero(t, m.GetGauge().GetValue())
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	handler := serveWithChi(PrometheusMetrics("miss-svc"), func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.NotNil(t, collectMetric(httpRequestsTotal, map[string]string{"service": "miss-svc", "status": "404"}))
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestStatusRecorder_FlushDelegates(t *testing.T) {
	under := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	rec := newStatusRecorder(under)
	rec.Flush()
	assert.True(t, under.flushed)
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("x"))
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, rec.status)
	assert.Equal(t, 1, rec.bytes)
}
