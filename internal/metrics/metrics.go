// Package metrics defines the Prometheus surface for the scoring hot path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// requestLatencyBuckets are the request latency histogram bounds in
// milliseconds.
var requestLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// stageDurationBuckets cover the sub-request stages, in seconds.
var stageDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Registry holds all Prometheus metrics for the fraud scoring service.
type Registry struct {
	RequestsTotal  *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec

	FraudScores          prometheus.Histogram
	RiskLevels           *prometheus.CounterVec
	Recommendations      *prometheus.CounterVec
	ModelPredictions     *prometheus.CounterVec
	ModelDuration        prometheus.Histogram
	FeatureExtractionDur prometheus.Histogram

	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	CacheHitRatio prometheus.Gauge

	RateLimitHits   prometheus.Counter
	RateLimitErrors prometheus.Counter

	PersistenceDuration *prometheus.HistogramVec
	DBPoolInUse         prometheus.Gauge
	DBPoolHighWater     prometheus.Gauge
}

// NewRegistry creates and registers all service metrics on the given
// Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudscore_requests_total",
				Help: "Total HTTP requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudscore_request_latency_ms",
				Help:    "End-to-end request latency in milliseconds by endpoint",
				Buckets: requestLatencyBuckets,
			},
			[]string{"endpoint"},
		),
		FraudScores: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fraudscore_fraud_score",
				Help:    "Distribution of returned fraud scores",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),
		RiskLevels: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudscore_risk_levels_total",
				Help: "Scored transactions by risk level",
			},
			[]string{"risk_level"},
		),
		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudscore_recommendations_total",
				Help: "Scored transactions by recommendation",
			},
			[]string{"recommendation"},
		),
		ModelPredictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudscore_model_predictions_total",
				Help: "Model predictions by source (model or fallback)",
			},
			[]string{"source"},
		),
		ModelDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fraudscore_model_prediction_seconds",
				Help:    "Model inference duration in seconds",
				Buckets: stageDurationBuckets,
			},
		),
		FeatureExtractionDur: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fraudscore_feature_extraction_seconds",
				Help:    "Feature extraction duration in seconds",
				Buckets: stageDurationBuckets,
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudscore_cache_hits_total",
				Help: "Cache hits by layer",
			},
			[]string{"layer"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fraudscore_cache_misses_total",
				Help: "Cache misses by layer",
			},
			[]string{"layer"},
		),
		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fraudscore_cache_hit_ratio",
				Help: "Combined cache hit ratio (0.0 to 1.0)",
			},
		),
		RateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fraudscore_rate_limit_hits_total",
				Help: "Requests denied by the rate limiter",
			},
		),
		RateLimitErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fraudscore_rate_limit_errors_total",
				Help: "Rate limiter store errors handled fail-open",
			},
		),
		PersistenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fraudscore_persistence_query_seconds",
				Help:    "Persistence query duration in seconds by operation",
				Buckets: stageDurationBuckets,
			},
			[]string{"operation"},
		),
		DBPoolInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fraudscore_db_pool_in_use",
				Help: "Database connections currently in use",
			},
		),
		DBPoolHighWater: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fraudscore_db_pool_high_water",
				Help: "Highest observed count of in-use database connections",
			},
		),
	}

	reg.MustRegister(
		r.RequestsTotal, r.RequestLatency,
		r.FraudScores, r.RiskLevels, r.Recommendations,
		r.ModelPredictions, r.ModelDuration, r.FeatureExtractionDur,
		r.CacheHits, r.CacheMisses, r.CacheHitRatio,
		r.RateLimitHits, r.RateLimitErrors,
		r.PersistenceDuration, r.DBPoolInUse, r.DBPoolHighWater,
	)

	return r
}

// NewDefault registers on the process-global Prometheus registry.
func NewDefault() *Registry {
	return NewRegistry(prometheus.DefaultRegisterer)
}

// RecordCacheHit counts a hit for a layer and refreshes the combined ratio.
func (r *Registry) RecordCacheHit(layer string) {
	r.CacheHits.WithLabelValues(layer).Inc()
	r.updateCacheHitRatio()
}

// RecordCacheMiss counts a miss for a layer and refreshes the combined ratio.
func (r *Registry) RecordCacheMiss(layer string) {
	r.CacheMisses.WithLabelValues(layer).Inc()
	r.updateCacheHitRatio()
}

func (r *Registry) updateCacheHitRatio() {
	var hits, misses float64
	m := &dto.Metric{}

	for _, layer := range []string{"l1", "l2"} {
		if c, err := r.CacheHits.GetMetricWithLabelValues(layer); err == nil {
			if err := c.Write(m); err == nil {
				hits += m.GetCounter().GetValue()
			}
		}
		if c, err := r.CacheMisses.GetMetricWithLabelValues(layer); err == nil {
			if err := c.Write(m); err == nil {
				misses += m.GetCounter().GetValue()
			}
		}
	}

	if total := hits + misses; total > 0 {
		r.CacheHitRatio.Set(hits / total)
	}
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
