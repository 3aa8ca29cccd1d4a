package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// DispatcherConfig controls batch fan-out behavior.
type DispatcherConfig struct {
	// MaxConcurrency bounds how many batches run simultaneously.
	MaxConcurrency int
	// BatchTimeout is a hard wall-clock bound on one batch's total
	// processing, not per call.
	BatchTimeout time.Duration
	// TokenCeiling stops new extraction calls once reached; 0 disables
	// the quota gate.
	TokenCeiling int64
}

// Dispatcher runs batches concurrently, pushing each record through the
// extractor and sink. One batch's failure or timeout never cancels or
// corrupts sibling batches.
type Dispatcher struct {
	extractor auction.RecordExtractor
	sink      auction.RecordSink
	cfg       DispatcherConfig
	logger    *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(
	extractor auction.RecordExtractor,
	sink auction.RecordSink,
	cfg DispatcherConfig,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		extractor: extractor,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
	}
}

// quotaGate is the only state shared across concurrent batch tasks. The
// ceiling check tolerates slight overshoot under races; it never
// undercounts.
type quotaGate struct {
	used    atomic.Int64
	ceiling int64
}

func (g *quotaGate) exceeded() bool {
	return g.ceiling > 0 && g.used.Load() >= g.ceiling
}

func (g *quotaGate) consume(n int64) {
	if n < 1 {
		n = 1
	}
	g.used.Add(n)
}

// Dispatch processes all batches with bounded concurrency and returns
// their outcomes sorted by batch number, plus the total tokens consumed.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	batches []auction.Batch,
	existing map[string]struct{},
) ([]auction.BatchOutcome, int64) {
	gate := &quotaGate{ceiling: d.cfg.TokenCeiling}
	outcomes := make([]auction.BatchOutcome, len(batches))
	sem := make(chan struct{}, d.cfg.MaxConcurrency)

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func(slot int, b auction.Batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[slot] = d.processBatch(ctx, b, existing, gate)
		}(i, batch)
	}
	wg.Wait()

	for _, out := range outcomes {
		auction.BatchesCompleted.WithLabelValues(string(out.Status)).Inc()
	}
	return outcomes, gate.used.Load()
}

func (d *Dispatcher) processBatch(
	ctx context.Context,
	batch auction.Batch,
	existing map[string]struct{},
	gate *quotaGate,
) (outcome auction.BatchOutcome) {
	outcome.BatchNumber = batch.Number
	logger := d.logger.With(
		zap.Int("batch", batch.Number),
		zap.String("document_key", batch.DocumentKey),
	)

	// Bulkhead: a panicking extractor or sink damages only its own batch.
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("batch panicked", zap.Any("panic", rec))
			outcome.Status = auction.BatchStatusError
			outcome.Errors = append(outcome.Errors, auction.RecordFailure{
				Reason: fmt.Sprintf("panic: %v", rec),
			})
		}
	}()

	keep, duplicates := FilterDuplicates(batch.Records, existing)
	for _, rec := range duplicates {
		outcome.Skipped = append(outcome.Skipped, auction.SkippedRecord{
			Ordinal: rec.Ordinal,
			Key:     rec.NaturalKey,
			Reason:  auction.SkipDuplicate,
		})
		auction.RecordsSkipped.WithLabelValues(string(auction.SkipDuplicate)).Inc()
	}

	batchCtx, cancel := context.WithTimeout(ctx, d.cfg.BatchTimeout)
	defer cancel()

	timedOut := false
	for i, rec := range keep {
		if batchCtx.Err() != nil {
			timedOut = errors.Is(batchCtx.Err(), context.DeadlineExceeded)
			break
		}
		if gate.exceeded() {
			logger.Warn("token ceiling reached, skipping remaining records",
				zap.Int64("tokens_used", gate.used.Load()),
				zap.Int64("ceiling", gate.ceiling),
			)
			for _, rest := range keep[i:] {
				outcome.Skipped = append(outcome.Skipped, auction.SkippedRecord{
					Ordinal: rest.Ordinal,
					Key:     rest.NaturalKey,
					Reason:  auction.SkipQuotaExceeded,
				})
				auction.RecordsSkipped.WithLabelValues(string(auction.SkipQuotaExceeded)).Inc()
			}
			break
		}

		outcome.RecordsAttempted++
		done, to := d.processRecord(batchCtx, batch.DocumentKey, rec, gate, &outcome, logger)
		if to {
			// The in-flight record's partial result is discarded.
			outcome.RecordsAttempted--
			timedOut = true
			break
		}
		if done {
			outcome.RecordsSucceeded++
			auction.RecordsSucceeded.Inc()
		}
	}

	outcome.Status = deriveBatchStatus(outcome, timedOut)
	logger.Info("batch completed",
		zap.String("status", string(outcome.Status)),
		zap.Int("attempted", outcome.RecordsAttempted),
		zap.Int("succeeded", outcome.RecordsSucceeded),
		zap.Int("failed", len(outcome.Errors)),
		zap.Int("skipped", len(outcome.Skipped)),
	)
	return outcome
}

// processRecord runs one record through extract and upsert. It reports
// (succeeded, timedOut); failures are folded into the outcome and never
// abort the batch.
func (d *Dispatcher) processRecord(
	ctx context.Context,
	documentKey string,
	rec auction.RecordBlock,
	gate *quotaGate,
	outcome *auction.BatchOutcome,
	logger *zap.Logger,
) (bool, bool) {
	res, err := d.extractor.Extract(ctx, rec.RawText)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, true
		}
		logger.Error("extraction failed",
			zap.Int("ordinal", rec.Ordinal),
			zap.String("key", rec.NaturalKey),
			zap.Error(err),
		)
		d.recordFailure(outcome, rec, "extract", err)
		return false, false
	}
	gate.consume(int64(res.TokensUsed))
	auction.TokensConsumed.Add(float64(max(res.TokensUsed, 1)))

	fields := res.Fields
	if fields == nil {
		fields = auction.Fields{}
	}
	fields["gov_pdf_name"] = documentKey

	key := rec.NaturalKey
	if key == "" {
		key = fields.CaseNumber()
	}
	if err := d.sink.Upsert(ctx, key, fields); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, true
		}
		logger.Error("upsert failed",
			zap.Int("ordinal", rec.Ordinal),
			zap.String("key", key),
			zap.Error(err),
		)
		d.recordFailure(outcome, rec, "upsert", err)
		return false, false
	}
	return true, false
}

func (d *Dispatcher) recordFailure(
	outcome *auction.BatchOutcome,
	rec auction.RecordBlock,
	stage string,
	err error,
) {
	outcome.Errors = append(outcome.Errors, auction.RecordFailure{
		Ordinal: rec.Ordinal,
		Key:     rec.NaturalKey,
		Reason:  fmt.Sprintf("%s: %v", stage, err),
	})
	auction.RecordFailures.WithLabelValues(stage).Inc()
}

func deriveBatchStatus(outcome auction.BatchOutcome, timedOut bool) auction.BatchStatus {
	switch {
	case timedOut:
		return auction.BatchStatusTimeout
	case len(outcome.Errors) == 0:
		return auction.BatchStatusSuccess
	case outcome.RecordsSucceeded == 0:
		return auction.BatchStatusError
	default:
		return auction.BatchStatusPartial
	}
}
