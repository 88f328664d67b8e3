package interceptors

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tjfontaine/mobile-api-client/internal/core/domain"
	"github.com/tjfontaine/mobile-api-client/internal/core/ports"
)

// Metrics records client-side Prometheus metrics. It is both a response and
// an error interceptor; install it on both chains.
type Metrics struct {
	ResponsesTotal  *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
}

var (
	_ ports.ResponseInterceptor = (*Metrics)(nil)
	_ ports.ErrorInterceptor    = (*Metrics)(nil)
)

// NewMetrics registers and returns the client metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResponsesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "api_client_responses_total",
			Help: "Total HTTP responses received, by status code.",
		}, []string{"status"}),
		RequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "api_client_request_duration_seconds",
			Help:    "Duration of the successful attempt of each call in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "api_client_errors_total",
			Help: "Total failed calls, by error kind and code.",
		}, []string{"kind", "code"}),
	}
}

func (m *Metrics) InterceptResponse(ctx context.Context, resp *domain.RawResponse) (*domain.RawResponse, error) {
	m.ResponsesTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	m.RequestDuration.Observe(resp.Duration.Seconds())
	return resp, nil
}

func (m *Metrics) InterceptError(ctx context.Context, apiErr *domain.APIError) error {
	m.ErrorsTotal.WithLabelValues(string(apiErr.Kind()), apiErr.Code).Inc()
	return nil
}
