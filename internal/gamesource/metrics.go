package gamesource

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_source_requests_total",
		Help: "Requests to the external game service by endpoint and result.",
	}, []string{"endpoint", "result"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_source_breaker_state",
		Help: "Game service circuit breaker state (0 closed, 1 half-open, 2 open).",
	})
)
