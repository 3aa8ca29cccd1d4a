// Package runner drains the run queue and drives the pipeline coordinator.
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sheriffdata/gazette-etl/internal/auction"
	"github.com/sheriffdata/gazette-etl/internal/pipeline"
)

const maxAttempts = 2

// Runner processes queued run requests one at a time.
type Runner struct {
	queue       auction.RunQueue
	store       *RunStore
	coordinator *pipeline.Coordinator
	logger      *zap.Logger
}

// New constructs a Runner.
func New(queue auction.RunQueue, store *RunStore, coordinator *pipeline.Coordinator, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		queue:       queue,
		store:       store,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Run blocks until the context ends, dequeuing and executing run requests.
func (r *Runner) Run(ctx context.Context) {
	for {
		req, err := r.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("dequeue failed", zap.Error(err))
			return
		}
		r.process(ctx, req)
	}
}

func (r *Runner) process(ctx context.Context, req auction.RunRequest) {
	logger := r.logger.With(
		zap.String("run_id", req.RunID),
		zap.String("document_key", req.DocumentKey),
		zap.Int("attempt", req.Attempt),
	)

	if err := r.store.SetStatus(ctx, req.RunID, auction.RunStatusRunning); err != nil {
		logger.Warn("mark run running failed", zap.Error(err))
	}

	report, err := r.coordinator.Run(ctx, req.RunID, req.DocumentKey)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		// One re-enqueue for transient fetch/extract failures; a second
		// failure is final.
		if req.Attempt < maxAttempts && !errors.Is(err, auction.ErrDocumentNotFound) && ctx.Err() == nil {
			retry := req
			retry.Attempt++
			retry.Submitted = time.Now().Unix()
			enqueueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if enqErr := r.queue.Enqueue(enqueueCtx, retry); enqErr != nil {
				logger.Warn("re-enqueue failed", zap.Error(enqErr))
			} else {
				report.Status = auction.RunStatusQueued
			}
			cancel()
		}
	}

	if storeErr := r.store.SetReport(ctx, report); storeErr != nil {
		logger.Warn("store run report failed", zap.Error(storeErr))
	}
}
