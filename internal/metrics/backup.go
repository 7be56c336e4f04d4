package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackupsInFlight counts records currently pending or in progress.
	BackupsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamehost_backups_in_flight",
		Help: "Number of backups currently pending or in progress",
	})

	// BackupsTotal counts finished backups by outcome (completed, failed).
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamehost_backups_total",
		Help: "Total number of finished backups by outcome",
	}, []string{"outcome"})

	// ScheduledRunsTotal counts scheduler-triggered runs by result
	// (started, skipped, error).
	ScheduledRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamehost_scheduled_runs_total",
		Help: "Total number of scheduled backup runs by result",
	}, []string{"result"})

	// RetentionDeletesTotal counts automatic backups pruned by retention.
	RetentionDeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamehost_retention_deletes_total",
		Help: "Total number of backups deleted by retention enforcement",
	})
)
