package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	generationAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_generation_attempts_total",
			Help: "Total number of SQL generation attempts sent to the completion service.",
		},
	)
	validationVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_validation_verdicts_total",
			Help: "Total number of candidate SQL validation verdicts.",
		},
		[]string{"verdict"},
	)
	generationExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_generation_exhausted_total",
			Help: "Total number of questions abandoned after the attempt ceiling.",
		},
	)
	turnsAnsweredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletalk_turns_answered_total",
			Help: "Total number of answered turns by outcome.",
		},
		[]string{"outcome"},
	)
	turnLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabletalk_turn_latency_seconds",
			Help:    "End-to-end latency of one answered turn.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90, 180},
		},
	)
	sessionWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletalk_session_write_failures_total",
			Help: "Total number of failed session history writes.",
		},
	)
	engineJobSecondsTotal = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tabletalk_engine_job_seconds",
			Help:    "Query engine job wall time by mode.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"mode", "state"},
	)
)

func init() {
	prometheus.MustRegister(
		generationAttemptsTotal,
		validationVerdictsTotal,
		generationExhaustedTotal,
		turnsAnsweredTotal,
		turnLatencySeconds,
		sessionWriteFailuresTotal,
		engineJobSecondsTotal,
	)
}

func ObserveGenerationAttempt(passed bool) {
	generationAttemptsTotal.Inc()
	verdict := "failed"
	if passed {
		verdict = "passed"
	}
	validationVerdictsTotal.WithLabelValues(verdict).Inc()
}

func IncrementGenerationExhausted() {
	generationExhaustedTotal.Inc()
}

func ObserveTurn(outcome string, elapsed time.Duration) {
	turnsAnsweredTotal.WithLabelValues(outcome).Inc()
	turnLatencySeconds.Observe(elapsed.Seconds())
}

func IncrementSessionWriteFailure() {
	sessionWriteFailuresTotal.Inc()
}

func ObserveEngineJob(mode, state string, elapsed time.Duration) {
	engineJobSecondsTotal.WithLabelValues(mode, state).Observe(elapsed.Seconds())
}
