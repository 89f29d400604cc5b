package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type sessions interface {
	Sweep(idle time.Duration) int
}

// Worker periodically closes view sessions nobody has touched for a while.
type Worker struct {
	sessions sessions
	interval time.Duration
	idle     time.Duration
}

// NewWorker creates a new session sweeper.
func NewWorker(s sessions) *Worker {
	intervalSeconds := viper.GetInt("sessions.sweep_interval_seconds")
	if intervalSeconds == 0 {
		intervalSeconds = 60
	}

	idleMinutes := viper.GetInt("sessions.idle_timeout_minutes")
	if idleMinutes == 0 {
		idleMinutes = 30
	}

	return &Worker{
		sessions: s,
		interval: time.Duration(intervalSeconds) * time.Second,
		idle:     time.Duration(idleMinutes) * time.Minute,
	}
}

// Start sweeps until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Session sweeper started", "interval", w.interval, "idle_timeout", w.idle)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Session sweeper shutting down")

			return
		case <-ticker.C:
			w.sessions.Sweep(w.idle)
		}
	}
}
