package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_turns_processed_total",
			Help: "Total number of dialogue turns processed",
		},
		[]string{"intent"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dialogue_turn_duration_seconds",
			Help: "Duration of turn processing in seconds",
		},
		[]string{"intent"},
	)

	CapabilityCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_capability_calls_total",
			Help: "Total number of business capability invocations",
		},
		[]string{"capability", "status"},
	)

	CapabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dialogue_capability_duration_seconds",
			Help: "Duration of capability calls in seconds",
		},
		[]string{"capability"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dialogue_active_sessions",
			Help: "Number of live sessions held in memory",
		},
	)
)
