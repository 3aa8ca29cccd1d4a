package auction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsCompleted counts finished runs partitioned by result.
	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gazette_runs_total",
		Help: "Total document runs completed, partitioned by result.",
	}, []string{"result"})
	// RecordsFound counts auction records discovered by segmentation.
	RecordsFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gazette_records_found_total",
		Help: "Total auction records found across all runs.",
	})
	// RecordsSucceeded counts records extracted and persisted.
	RecordsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gazette_records_succeeded_total",
		Help: "Total auction records extracted and upserted.",
	})
	// RecordFailures counts per-record failures partitioned by stage.
	RecordFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gazette_record_failures_total",
		Help: "Total per-record failures, partitioned by pipeline stage.",
	}, []string{"stage"})
	// RecordsSkipped counts records not processed, partitioned by reason.
	RecordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gazette_records_skipped_total",
		Help: "Total records skipped, partitioned by reason.",
	}, []string{"reason"})
	// BatchesCompleted counts batch outcomes partitioned by status.
	BatchesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gazette_batches_total",
		Help: "Total batches dispatched, partitioned by outcome status.",
	}, []string{"status"})
	// TokensConsumed counts extraction tokens charged against the quota.
	TokensConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gazette_extraction_tokens_total",
		Help: "Total language-model tokens consumed by extraction calls.",
	})
	// RunDuration observes wall time per completed run.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gazette_run_duration_seconds",
		Help:    "Wall time per completed run.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"result"})
)
