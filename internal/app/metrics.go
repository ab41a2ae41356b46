package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calld_active_calls",
		Help: "The number of call sessions currently active",
	})

	metricCallsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calld_calls_started_total",
		Help: "The total number of call sessions started",
	}, []string{"topology"})

	metricCallsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calld_calls_ended_total",
		Help: "The total number of call sessions removed, by reason",
	}, []string{"reason"})

	metricSignalsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calld_signals_relayed_total",
		Help: "The total number of signaling payloads relayed between peers",
	})

	metricSignalsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calld_signals_dropped_total",
		Help: "Total signaling payloads dropped because the sender was not a participant",
	})
)
