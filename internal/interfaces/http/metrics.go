package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
	"github.com/sawpanic/aftershock/internal/infrastructure/providers"
)

var verdicts = []string{
	aftershock.VerdictNoTrade,
	aftershock.VerdictHighProbability,
	aftershock.VerdictLowProbability,
	aftershock.VerdictAvoid,
}

// MetricsRegistry holds all Prometheus metrics for aftershock. Each registry
// owns its own prometheus.Registry so several can coexist in one process.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Analysis metrics
	Analyses    *prometheus.CounterVec
	SetupScores prometheus.Histogram

	// Provider metrics
	ProviderDuration *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec

	// Cache performance metrics
	CacheHitRatio prometheus.Gauge
	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec

	// Boundary metrics
	HTTPRequests       *prometheus.CounterVec
	VerdictTransitions *prometheus.CounterVec
}

// NewMetricsRegistry creates a registry with every aftershock metric registered
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		Analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aftershock_analyses_total",
				Help: "Total number of completed analyses by verdict",
			},
			[]string{"verdict"},
		),

		SetupScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aftershock_setup_score",
				Help:    "Distribution of setup scores",
				Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 75},
			},
		),

		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aftershock_provider_request_duration_seconds",
				Help:    "Upstream provider request duration in seconds",
				Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"provider", "result"},
		),

		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aftershock_provider_errors_total",
				Help: "Total number of failed upstream requests by provider and error type",
			},
			[]string{"provider", "error_type"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aftershock_cache_hit_ratio",
				Help: "Current provider cache hit ratio (0.0 to 1.0)",
			},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aftershock_cache_hits_total",
				Help: "Total number of provider cache hits",
			},
			[]string{"provider"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aftershock_cache_misses_total",
				Help: "Total number of provider cache misses",
			},
			[]string{"provider"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aftershock_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "route", "status"},
		),

		VerdictTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aftershock_verdict_transitions_total",
				Help: "Total number of watchlist verdict changes",
			},
			[]string{"from", "to"},
		),
	}

	m.registry.MustRegister(
		m.Analyses,
		m.SetupScores,
		m.ProviderDuration,
		m.ProviderErrors,
		m.CacheHitRatio,
		m.CacheHits,
		m.CacheMisses,
		m.HTTPRequests,
		m.VerdictTransitions,
	)

	return m
}

// Registry exposes the underlying prometheus registry
func (m *MetricsRegistry) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAnalysis counts a completed analysis
func (m *MetricsRegistry) RecordAnalysis(result aftershock.Result) {
	m.Analyses.WithLabelValues(result.Verdict).Inc()
	m.SetupScores.Observe(float64(result.SetupScore))
}

// ObserveProviderRequest records one upstream request outcome
func (m *MetricsRegistry) ObserveProviderRequest(provider string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
		m.ProviderErrors.WithLabelValues(provider, errorType(err)).Inc()
	}
	m.ProviderDuration.WithLabelValues(provider, result).Observe(duration.Seconds())
}

// ObserveCache records a provider cache lookup
func (m *MetricsRegistry) ObserveCache(provider string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(provider).Inc()
	} else {
		m.CacheMisses.WithLabelValues(provider).Inc()
	}
	m.updateCacheHitRatio()
}

// RecordTransition counts a watchlist verdict change
func (m *MetricsRegistry) RecordTransition(from, to string) {
	m.VerdictTransitions.WithLabelValues(from, to).Inc()
	log.Debug().Str("from", from).Str("to", to).Msg("Verdict transition recorded")
}

// RecordHTTPRequest counts a served request
func (m *MetricsRegistry) RecordHTTPRequest(method, route string, status int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// AnalysesTotal sums the analysis counter across verdicts
func (m *MetricsRegistry) AnalysesTotal() float64 {
	total := 0.0
	for _, verdict := range verdicts {
		total += counterValue(m.Analyses, verdict)
	}
	return total
}

// updateCacheHitRatio recomputes the hit ratio over every provider
func (m *MetricsRegistry) updateCacheHitRatio() {
	totalHits := 0.0
	totalMisses := 0.0
	for _, provider := range []string{config.ProviderMoralis, config.ProviderDexScreener} {
		totalHits += counterValue(m.CacheHits, provider)
		totalMisses += counterValue(m.CacheMisses, provider)
	}

	total := totalHits + totalMisses
	if total > 0 {
		m.CacheHitRatio.Set(totalHits / total)
	}
}

// MetricsHandler returns an HTTP handler for the registry's metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func counterValue(vec *prometheus.CounterVec, label string) float64 {
	counter, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}

func errorType(err error) string {
	var httpErr *providers.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return http.StatusText(httpErr.StatusCode)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, providers.ErrBudgetExhausted):
		return "budget_exhausted"
	default:
		return "transport"
	}
}
