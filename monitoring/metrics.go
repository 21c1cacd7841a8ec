// Package monitoring exposes Prometheus metrics for the cost service.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors the service records into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	modelLoads      *prometheus.CounterVec
	modelReady      prometheus.Gauge
	predictions     *prometheus.CounterVec
	predictDuration prometheus.Histogram
	anomalyChecks   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		modelLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_model_loads_total",
				Help: "Model artifact load attempts by result",
			},
			[]string{"result"},
		),
		modelReady: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tripcost_model_ready",
			Help: "1 when the model artifact is loaded",
		}),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_predictions_total",
				Help: "Cost estimates by result and source",
			},
			[]string{"result", "source"},
		),
		predictDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripcost_predict_duration_seconds",
			Help:    "Time spent producing a cost estimate",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
		anomalyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_anomaly_checks_total",
				Help: "Anomaly evaluations by outcome",
			},
			[]string{"anomaly"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tripcost_http_requests_total",
				Help: "HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (m *Metrics) RecordModelLoad(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.modelLoads.WithLabelValues("error").Inc()
		return
	}
	m.modelLoads.WithLabelValues("success").Inc()
	m.modelReady.Set(1)
}

// RecordPrediction counts an estimate; source is "model" or "cache".
func (m *Metrics) RecordPrediction(source string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.predictions.WithLabelValues(result, source).Inc()
	m.predictDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) RecordAnomalyCheck(isAnomaly bool) {
	if m == nil {
		return
	}
	if isAnomaly {
		m.anomalyChecks.WithLabelValues("true").Inc()
		return
	}
	m.anomalyChecks.WithLabelValues("false").Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
}
