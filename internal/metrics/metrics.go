package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the predictions counter.
const (
	OutcomeSuccess        = "success"
	OutcomeUpstreamError  = "upstream_error"
	OutcomeStorageError   = "storage_error"
	OutcomeValidationFail = "validation_error"
)

// Metrics groups the collectors recorded by the prediction pipeline.
type Metrics struct {
	predictions      *prometheus.CounterVec
	predictorLatency *prometheus.HistogramVec
	publishFailures  prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "electricity_predictions_total",
			Help: "Total number of prediction requests by outcome.",
		}, []string{"outcome"}),
		predictorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electricity_predictor_request_duration_seconds",
			Help:    "Latency of calls to the external prediction service.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"result"}),
		publishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "electricity_prediction_publish_failures_total",
			Help: "Total number of prediction events that could not be published.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "electricity_http_requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "electricity_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordPrediction increments the outcome counter.
func (m *Metrics) RecordPrediction(outcome string) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
}

// ObservePredictorLatency records one upstream call.
func (m *Metrics) ObservePredictorLatency(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.predictorLatency.WithLabelValues(result).Observe(d.Seconds())
}

// RecordPublishFailure counts a dropped prediction event.
func (m *Metrics) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// ObserveHTTPRequest records one handled request. route is the matched gin route, not the raw path.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
