// Package consumer wires the blockchain-updates stream into Postgres:
// Source decodes the upstream gRPC stream, Batcher absorbs short reorgs
// in memory, and Writer applies each resulting batch atomically.
package consumer

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the consumer's gauge set one-for-one: Height, the
// per-batch size and collection time, and the per-batch database write
// time.
type Metrics struct {
	Height              prometheus.Gauge
	UpdatesBatchSize    prometheus.Gauge
	UpdatesBatchTimeMs  prometheus.Gauge
	DatabaseWriteTimeMs prometheus.Gauge
}

// NewMetrics creates and registers the consumer's gauges against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "Height",
			Help: "Currently imported height",
		}),
		UpdatesBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "UpdatesBatchSize",
			Help: "Number of updates in each batch",
		}),
		UpdatesBatchTimeMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "UpdatesBatchTimeMs",
			Help: "Time (in ms) of each batch",
		}),
		DatabaseWriteTimeMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "DatabaseWriteTimeMs",
			Help: "Time (in ms) of DB writes",
		}),
	}
	reg.MustRegister(m.Height, m.UpdatesBatchSize, m.UpdatesBatchTimeMs, m.DatabaseWriteTimeMs)
	return m
}
