package serving

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "generations_total",
			Help:      "Completed generations by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "generation_duration_seconds",
			Help:      "Generation latency in seconds, admission included",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode"},
	)

	tokensStreamedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "tokens_streamed_total",
			Help:      "Tokens forwarded to streaming clients",
		},
	)

	coldStartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "cold_starts_total",
			Help:      "Engine cold starts",
		},
	)

	engineUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "engine_up",
			Help:      "Whether the inference engine is up (1) or stopped (0)",
		},
	)

	queueLen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "queue_len",
			Help:      "Admitted requests holding a queue slot",
		},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "inflight_generations",
			Help:      "Generations holding a concurrency slot",
		},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sqlcoderd",
			Subsystem: "serving",
			Name:      "rejections_total",
			Help:      "Admission rejections (429) by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		generationsTotal,
		generationDuration,
		tokensStreamedTotal,
		coldStartsTotal,
		engineUp,
		queueLen,
		inflight,
		rejectionsTotal,
	)
}
