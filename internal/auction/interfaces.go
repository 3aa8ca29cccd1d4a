package auction

import (
	"context"
	"time"
)

// DocumentSource fetches raw gazette documents from the intake location.
type DocumentSource interface {
	// Fetch returns the raw bytes for a document key, or ErrDocumentNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// ListPending returns the keys awaiting processing.
	ListPending(ctx context.Context) ([]string, error)
	// Archive moves a processed document out of the intake location.
	// Best-effort; a failure must not fail the run.
	Archive(ctx context.Context, key string) error
}

// PageExtractor turns raw document bytes into per-page text.
type PageExtractor interface {
	Pages(data []byte) ([]string, error)
}

// RecordExtractor converts one auction notice into structured fields.
// Implementations must be safe for concurrent use and may consume metered
// quota per successful call.
type RecordExtractor interface {
	Extract(ctx context.Context, recordText string) (ExtractionResult, error)
}

// RecordSink persists extracted records, idempotent by natural key.
type RecordSink interface {
	// ExistingKeys reports which of the candidate keys are already stored.
	ExistingKeys(ctx context.Context, keys []string) (map[string]struct{}, error)
	// Upsert writes one record, replacing any previous row with the same key.
	Upsert(ctx context.Context, key string, fields Fields) error
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunQueue provides enqueue/dequeue semantics for run requests.
type RunQueue interface {
	Enqueue(ctx context.Context, req RunRequest) error
	Dequeue(ctx context.Context) (RunRequest, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
