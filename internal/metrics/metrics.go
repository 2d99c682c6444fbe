// Package metrics exposes the service's prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	UnitsTotal        *prometheus.CounterVec
	QuotaDeniedTotal  *prometheus.CounterVec
	RecordsExtracted  prometheus.Counter
	BatchSessionsOpen prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		UnitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_units_total",
			Help: "Unit-level attempts by type and outcome.",
		}, []string{"unit_type", "outcome"}),
		QuotaDeniedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_quota_denied_total",
			Help: "Reservations denied by the daily quota, by tier. Denials write no activity record.",
		}, []string{"tier"}),
		RecordsExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ingest_records_extracted_total",
			Help: "Structured records salvaged from model output.",
		}),
		BatchSessionsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_batch_sessions_open",
			Help: "Live batch capture sessions.",
		}),
	}
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
