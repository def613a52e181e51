package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIRetriesTotal    *prometheus.CounterVec
	RateLimitRemaining prometheus.Gauge
	BreakerState       *prometheus.GaugeVec

	// Sync Metrics
	SyncRecordsTotal *prometheus.CounterVec
	SyncErrorsTotal  *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec
	SiteSyncsTotal   *prometheus.CounterVec
}

// NewCollector creates a new metrics collector registered on reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of upstream API requests by endpoint and outcome",
			},
			[]string{"endpoint", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Upstream API request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),

		APIRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_retries_total",
				Help:      "Total number of retried upstream API requests by endpoint",
			},
			[]string{"endpoint"},
		),

		RateLimitRemaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "api_daily_requests_remaining",
				Help:      "Requests left in the rolling 24 hour quota",
			},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		SyncRecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_records_total",
				Help:      "Total number of records upserted by data type",
			},
			[]string{"data_type"},
		),

		SyncErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_errors_total",
				Help:      "Total number of failed strategy runs by data type",
			},
			[]string{"data_type"},
		),

		SyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of one strategy run in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"data_type"},
		),

		SiteSyncsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "site_syncs_total",
				Help:      "Total number of site syncs by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAPIRequest records one upstream request.
func (c *Collector) RecordAPIRequest(endpoint, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	c.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRetry counts a retried request.
func (c *Collector) RecordRetry(endpoint string) {
	if c == nil {
		return
	}
	c.APIRetriesTotal.WithLabelValues(endpoint).Inc()
}

// SetRateLimitRemaining publishes the remaining daily quota.
func (c *Collector) SetRateLimitRemaining(remaining int) {
	if c == nil {
		return
	}
	c.RateLimitRemaining.Set(float64(remaining))
}

// SetBreakerState publishes a circuit breaker state.
func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}

// RecordStrategy records the outcome of one strategy run.
func (c *Collector) RecordStrategy(dataType string, records int, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.SyncDuration.WithLabelValues(dataType).Observe(duration.Seconds())
	if err != nil {
		c.SyncErrorsTotal.WithLabelValues(dataType).Inc()
		return
	}
	c.SyncRecordsTotal.WithLabelValues(dataType).Add(float64(records))
}

// RecordSiteSync counts a finished site sync.
func (c *Collector) RecordSiteSync(success bool) {
	if c == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.SiteSyncsTotal.WithLabelValues(outcome).Inc()
}
