package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStats is the subset of *pgxpool.Stat exported as gauges.
type PoolStats interface {
	AcquiredConns() int32
	MaxConns() int32
	TotalConns() int32
	IdleConns() int32
	EmptyAcquireCount() int64
}

// RegisterPgxPoolMetrics exposes connection pool statistics of the
// invocation store as gauges labelled with the owning process role.
func RegisterPgxPoolMetrics(reg prometheus.Registerer, role string, pool *pgxpool.Pool) {
	registerPoolMetrics(reg, role, func() PoolStats { return pool.Stat() })
}

func registerPoolMetrics(reg prometheus.Registerer, role string, stat func() PoolStats) {
	gauge := func(name, help string, value func(s PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "messaging",
			Subsystem:   "pgxpool",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"role": role},
		}, func() float64 {
			return value(stat())
		})
	}

	reg.MustRegister(
		gauge("acquired_conns", "Number of currently acquired connections in the pool",
			func(s PoolStats) float64 { return float64(s.AcquiredConns()) }),
		gauge("max_conns", "Maximum number of connections in the pool",
			func(s PoolStats) float64 { return float64(s.MaxConns()) }),
		gauge("total_conns", "Total number of connections in the pool",
			func(s PoolStats) float64 { return float64(s.TotalConns()) }),
		gauge("idle_conns", "Number of idle connections in the pool",
			func(s PoolStats) float64 { return float64(s.IdleConns()) }),
		gauge("empty_acquire_total", "Acquires that had to wait for a connection",
			func(s PoolStats) float64 { return float64(s.EmptyAcquireCount()) }),
	)
}
