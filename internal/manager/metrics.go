package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufd",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Model load attempts by result",
		},
		[]string{"result"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufd",
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Generation requests by outcome (stop, length, empty, or error kind)",
		},
		[]string{"outcome"},
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ggufd",
			Subsystem: "engine",
			Name:      "tokens_total",
			Help:      "Tokens processed, by phase (prompt, completion)",
		},
		[]string{"phase"},
	)

	detokenizeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ggufd",
		Subsystem: "engine",
		Name:      "detokenize_failures_total",
		Help:      "Generated tokens skipped because they could not be rendered",
	})

	lockRecoveries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ggufd",
		Subsystem: "engine",
		Name:      "lock_recoveries_total",
		Help:      "Poisoned model states recovered after a panic",
	})

	modelResident = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ggufd",
		Subsystem: "engine",
		Name:      "model_resident",
		Help:      "1 when a model is loaded",
	})

	generationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ggufd",
		Subsystem: "engine",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of successful generations, including prefill",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, generationsTotal, tokensTotal, detokenizeFailures,
		lockRecoveries, modelResident, generationDuration)
}
