package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sheriffdata/gazette-etl/internal/auction"
	"github.com/sheriffdata/gazette-etl/internal/gazette"
)

// CoordinatorConfig controls the top-level run flow.
type CoordinatorConfig struct {
	// BatchSize is the number of records per dispatched batch.
	BatchSize int
	// SequentialThreshold is the record count at or below which the run
	// skips batching overhead and processes records in one sequential pass.
	SequentialThreshold int
	// SkipPages drops the gazette's front matter before normalization.
	SkipPages int
	// CompletionTopic receives a run summary after each run; empty
	// disables publishing.
	CompletionTopic string
}

// Coordinator is the single entry point of the ETL core: it fetches a
// document, normalizes and segments it, chooses a processing strategy,
// dispatches the work, and assembles the RunReport.
type Coordinator struct {
	source     auction.DocumentSource
	pages      auction.PageExtractor
	sink       auction.RecordSink
	normalizer *gazette.Normalizer
	segmenter  *gazette.Segmenter
	dispatcher *Dispatcher
	publisher  auction.Publisher
	clock      auction.Clock
	cfg        CoordinatorConfig
	logger     *zap.Logger
}

// NewCoordinator constructs a Coordinator. The publisher may be nil.
func NewCoordinator(
	source auction.DocumentSource,
	pages auction.PageExtractor,
	sink auction.RecordSink,
	normalizer *gazette.Normalizer,
	segmenter *gazette.Segmenter,
	dispatcher *Dispatcher,
	publisher auction.Publisher,
	clock auction.Clock,
	cfg CoordinatorConfig,
	logger *zap.Logger,
) *Coordinator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.SequentialThreshold <= 0 {
		cfg.SequentialThreshold = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		source:     source,
		pages:      pages,
		sink:       sink,
		normalizer: normalizer,
		segmenter:  segmenter,
		dispatcher: dispatcher,
		publisher:  publisher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes one gazette document end to end. Only a fetch or page
// extraction failure yields an error; every per-record and per-batch
// failure is folded into the report.
func (c *Coordinator) Run(ctx context.Context, runID, documentKey string) (auction.RunReport, error) {
	start := c.clock.Now()
	report := auction.RunReport{
		RunID:       runID,
		DocumentKey: documentKey,
		Status:      auction.RunStatusRunning,
		StartedAt:   start,
	}
	logger := c.logger.With(zap.String("run_id", runID), zap.String("document_key", documentKey))

	data, err := c.source.Fetch(ctx, documentKey)
	if err != nil {
		return c.fail(report, start, fmt.Errorf("fetch document: %w", err))
	}
	logger.Info("document fetched", zap.Int("bytes", len(data)))

	pages, err := c.pages.Pages(data)
	if err != nil {
		return c.fail(report, start, fmt.Errorf("extract pages: %w", err))
	}
	if c.cfg.SkipPages > 0 && len(pages) > c.cfg.SkipPages {
		pages = pages[c.cfg.SkipPages:]
	}

	text := c.normalizer.Normalize(pages)
	records, warnings := c.segmenter.Segment(text)
	report.Warnings = append(report.Warnings, warnings...)
	report.TotalRecordsFound = len(records)
	auction.RecordsFound.Add(float64(len(records)))
	logger.Info("document segmented",
		zap.Int("pages", len(pages)),
		zap.Int("records", len(records)),
		zap.Int("warnings", len(warnings)),
	)

	if len(records) == 0 {
		// An empty gazette section is a successful run, not an error.
		report.Status = auction.RunStatusSucceeded
		c.finish(ctx, &report, start, logger)
		return report, nil
	}

	existing := c.lookupExistingKeys(ctx, records, &report, logger)

	var batches []auction.Batch
	if len(records) <= c.cfg.SequentialThreshold {
		report.Strategy = auction.StrategySequential
		batches = Partition(records, len(records), documentKey)
	} else {
		report.Strategy = auction.StrategyBatched
		batches = Partition(records, c.cfg.BatchSize, documentKey)
	}
	logger.Info("dispatching batches",
		zap.String("strategy", string(report.Strategy)),
		zap.Int("batches", len(batches)),
	)

	outcomes, tokens := c.dispatcher.Dispatch(ctx, batches, existing)
	report.BatchOutcomes = outcomes
	report.TokensUsed = tokens
	for _, out := range outcomes {
		report.TotalSucceeded += out.RecordsSucceeded
		report.TotalFailed += len(out.Errors)
		report.TotalSkipped += len(out.Skipped)
	}

	report.Status = auction.RunStatusSucceeded
	c.finish(ctx, &report, start, logger)
	return report, nil
}

// lookupExistingKeys asks the sink which case numbers are already stored.
// A lookup failure degrades to processing everything; the sink's upserts
// are idempotent by natural key.
func (c *Coordinator) lookupExistingKeys(
	ctx context.Context,
	records []auction.RecordBlock,
	report *auction.RunReport,
	logger *zap.Logger,
) map[string]struct{} {
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.NaturalKey != "" {
			keys = append(keys, rec.NaturalKey)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	existing, err := c.sink.ExistingKeys(ctx, keys)
	if err != nil {
		logger.Warn("existing-key lookup failed, processing all records", zap.Error(err))
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("duplicate suppression unavailable: %v", err))
		return nil
	}
	logger.Info("existing keys looked up",
		zap.Int("candidates", len(keys)),
		zap.Int("already_stored", len(existing)),
	)
	return existing
}

func (c *Coordinator) finish(ctx context.Context, report *auction.RunReport, start time.Time, logger *zap.Logger) {
	report.Elapsed = c.clock.Now().Sub(start)
	auction.RunsCompleted.WithLabelValues(string(report.Status)).Inc()
	auction.RunDuration.WithLabelValues(string(report.Status)).Observe(report.Elapsed.Seconds())

	// Archive and publish are both best-effort side effects.
	if err := c.source.Archive(ctx, report.DocumentKey); err != nil {
		logger.Warn("archive failed", zap.Error(err))
		report.Warnings = append(report.Warnings, fmt.Sprintf("archive failed: %v", err))
	}
	if c.publisher != nil && c.cfg.CompletionTopic != "" {
		if _, err := c.publisher.Publish(ctx, c.cfg.CompletionTopic, completionEvent(*report)); err != nil {
			logger.Warn("completion publish failed", zap.Error(err))
		}
	}
	logger.Info("run completed",
		zap.String("status", string(report.Status)),
		zap.Int("found", report.TotalRecordsFound),
		zap.Int("succeeded", report.TotalSucceeded),
		zap.Int("failed", report.TotalFailed),
		zap.Int("skipped", report.TotalSkipped),
		zap.Int64("tokens", report.TokensUsed),
		zap.Duration("elapsed", report.Elapsed),
	)
}

func (c *Coordinator) fail(report auction.RunReport, start time.Time, err error) (auction.RunReport, error) {
	report.Status = auction.RunStatusFailed
	report.ErrorText = err.Error()
	report.Elapsed = c.clock.Now().Sub(start)
	auction.RunsCompleted.WithLabelValues(string(report.Status)).Inc()
	auction.RunDuration.WithLabelValues(string(report.Status)).Observe(report.Elapsed.Seconds())
	return report, err
}

func completionEvent(report auction.RunReport) map[string]any {
	return map[string]any{
		"run_id":        report.RunID,
		"document_key":  report.DocumentKey,
		"status":        string(report.Status),
		"records_found": report.TotalRecordsFound,
		"succeeded":     report.TotalSucceeded,
		"failed":        report.TotalFailed,
		"skipped":       report.TotalSkipped,
		"tokens_used":   report.TokensUsed,
		"timestamp":     report.StartedAt.Add(report.Elapsed).Format(time.RFC3339),
	}
}
