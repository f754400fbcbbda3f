package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	taskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_task_runs_total",
		Help: "Task iterations by task and result.",
	}, []string{"task", "result"})

	taskBackoff = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tracker_task_backoff_seconds",
		Help: "Current backoff wait of a failing task, zero when healthy.",
	}, []string{"task"})

	lobbyObservations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_lobby_observations_total",
		Help: "Lobby polls persisted by discovery.",
	})

	rolloverRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_lobby_rollover_repairs_total",
		Help: "Lobbies assumed full because the next lobby opened early.",
	})

	gamesFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_games_finalized_total",
		Help: "Finalization attempts by outcome.",
	}, []string{"outcome"})

	analysisTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_analysis_transitions_total",
		Help: "Analysis queue status changes made by the tracker.",
	}, []string{"status"})
)
