package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the prometheus counters for backup and recovery activity.
type Collector struct {
	BackupRuns     *prometheus.CounterVec
	RecordsSaved   prometheus.Counter
	RecordsSkipped prometheus.Counter
	RecordErrors   prometheus.Counter
	Recoveries     *prometheus.CounterVec
}

// New builds a Collector and registers it on the given registerer.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		BackupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finvault_backup_runs_total",
			Help: "Backup runs by outcome (completed, failed).",
		}, []string{"outcome"}),
		RecordsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finvault_records_saved_total",
			Help: "Records newly persisted by backup ingestion.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finvault_records_skipped_total",
			Help: "Records skipped because they were already stored.",
		}),
		RecordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finvault_record_errors_total",
			Help: "Per-item ingestion errors.",
		}),
		Recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finvault_recoveries_total",
			Help: "Recovery operations by outcome (success, failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.BackupRuns, c.RecordsSaved, c.RecordsSkipped, c.RecordErrors, c.Recoveries)
	return c
}
