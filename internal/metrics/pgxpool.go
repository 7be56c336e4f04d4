package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterPoolMetrics exposes core database connection pool statistics.
func RegisterPoolMetrics(pool *pgxpool.Pool) {
	gauge := func(name, help string, value func(*pgxpool.Stat) int32) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gamehost_db_" + name,
			Help: help,
		}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}

	prometheus.MustRegister(
		gauge("acquired_conns", "Connections currently acquired from the pool",
			func(s *pgxpool.Stat) int32 { return s.AcquiredConns() }),
		gauge("idle_conns", "Idle connections in the pool",
			func(s *pgxpool.Stat) int32 { return s.IdleConns() }),
		gauge("total_conns", "Total connections held by the pool",
			func(s *pgxpool.Stat) int32 { return s.TotalConns() }),
		gauge("max_conns", "Configured pool connection limit",
			func(s *pgxpool.Stat) int32 { return s.MaxConns() }),
	)
}
