// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GamesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minesweeper_games_started_total",
			Help: "Games started or reset, by difficulty",
		},
		[]string{"difficulty"},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minesweeper_games_finished_total",
			Help: "Games that reached a terminal state, by difficulty and outcome",
		},
		[]string{"difficulty", "outcome"},
	)
	Commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minesweeper_commands_total",
			Help: "Reveal and flag commands, by command and whether they changed the board",
		},
		[]string{"command", "applied"},
	)
	CellsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minesweeper_cells_opened_total",
			Help: "Cells opened by reveals, flood fills included",
		},
	)
	GameDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minesweeper_game_duration_seconds",
			Help:    "Wall time from start to terminal state",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 999},
		},
		[]string{"difficulty", "outcome"},
	)
	LiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "minesweeper_live_sessions",
			Help: "Sessions currently held in memory",
		},
	)
	SessionsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minesweeper_sessions_evicted_total",
			Help: "Idle sessions removed by the janitor",
		},
	)
)

func init() {
	prometheus.MustRegister(GamesStarted)
	prometheus.MustRegister(GamesFinished)
	prometheus.MustRegister(Commands)
	prometheus.MustRegister(CellsOpened)
	prometheus.MustRegister(GameDuration)
	prometheus.MustRegister(LiveSessions)
	prometheus.MustRegister(SessionsEvicted)
}
