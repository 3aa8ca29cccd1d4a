package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sheriffdata/gazette-etl/internal/auction"
	"github.com/sheriffdata/gazette-etl/internal/gazette"
)

type fakeSource struct {
	mu       sync.Mutex
	data     []byte
	fetchErr error
	archived []string
	archErr  error
}

func (f *fakeSource) Fetch(_ context.Context, _ string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.data, nil
}

func (f *fakeSource) ListPending(_ context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeSource) Archive(_ context.Context, key string) error {
	if f.archErr != nil {
		return f.archErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, key)
	return nil
}

type fakePages struct {
	pages []string
	err   error
}

func (f *fakePages) Pages(_ []byte) ([]string, error) {
	return f.pages, f.err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(time.Second)
	return f.now
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.events = append(f.events, payload)
	return "id", nil
}

func gazettePages(records int) []string {
	var b strings.Builder
	for i := 1; i <= records; i++ {
		fmt.Fprintf(&b, "Case No: %d/2024 auction notice %d ", i, i)
	}
	return []string{b.String()}
}

func newTestCoordinator(
	t *testing.T,
	source *fakeSource,
	pages *fakePages,
	sink *fakeSink,
	publisher auction.Publisher,
	cfg CoordinatorConfig,
) *Coordinator {
	t.Helper()
	normalizer, err := gazette.NewNormalizer(gazette.NormalizerConfig{StopMarker: "PAUC"})
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}
	segmenter, err := gazette.NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}
	dispatcher := NewDispatcher(okExtractor(10), sink, DispatcherConfig{MaxConcurrency: 2}, nil)
	return NewCoordinator(
		source, pages, sink, normalizer, segmenter, dispatcher,
		publisher, &fakeClock{now: time.Unix(1700000000, 0)}, cfg, nil,
	)
}

// TestRunFetchFailure ensures an unfetchable document fails the run.
func TestRunFetchFailure(t *testing.T) {
	t.Parallel()

	source := &fakeSource{fetchErr: auction.ErrDocumentNotFound}
	sink := newFakeSink()
	c := newTestCoordinator(t, source, &fakePages{}, sink, nil, CoordinatorConfig{})

	report, err := c.Run(context.Background(), "run-1", "missing.pdf")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, auction.ErrDocumentNotFound) {
		t.Fatalf("error = %v, want ErrDocumentNotFound", err)
	}
	if report.Status != auction.RunStatusFailed {
		t.Fatalf("status = %s, want failed", report.Status)
	}
	if report.ErrorText == "" {
		t.Fatal("failed report must carry error text")
	}
	if len(source.archived) != 0 {
		t.Fatal("failed fetch must not archive the document")
	}
}

// TestRunSequentialStrategy verifies small documents take the single-pass
// path and produce one batch outcome.
func TestRunSequentialStrategy(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf")}
	pages := &fakePages{pages: gazettePages(5)}
	sink := newFakeSink()
	pub := &fakePublisher{}
	c := newTestCoordinator(t, source, pages, sink, pub, CoordinatorConfig{
		BatchSize:           2,
		SequentialThreshold: 10,
		CompletionTopic:     "runs-completed",
	})

	report, err := c.Run(context.Background(), "run-2", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Strategy != auction.StrategySequential {
		t.Fatalf("strategy = %s, want sequential", report.Strategy)
	}
	if len(report.BatchOutcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(report.BatchOutcomes))
	}
	if report.TotalRecordsFound != 5 || report.TotalSucceeded != 5 {
		t.Fatalf("found=%d succeeded=%d, want 5 and 5", report.TotalRecordsFound, report.TotalSucceeded)
	}
	if report.TokensUsed != 50 {
		t.Fatalf("tokens = %d, want 50", report.TokensUsed)
	}
	if len(source.archived) != 1 || source.archived[0] != "gov.pdf" {
		t.Fatalf("document not archived: %v", source.archived)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "runs-completed" {
		t.Fatalf("completion event not published: %v", pub.topics)
	}
}

// TestRunBatchedStrategy verifies large documents are partitioned.
func TestRunBatchedStrategy(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf")}
	pages := &fakePages{pages: gazettePages(5)}
	sink := newFakeSink()
	c := newTestCoordinator(t, source, pages, sink, nil, CoordinatorConfig{
		BatchSize:           2,
		SequentialThreshold: 2,
	})

	report, err := c.Run(context.Background(), "run-3", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Strategy != auction.StrategyBatched {
		t.Fatalf("strategy = %s, want batched", report.Strategy)
	}
	if len(report.BatchOutcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(report.BatchOutcomes))
	}
	if report.TotalSucceeded != 5 {
		t.Fatalf("succeeded = %d, want 5", report.TotalSucceeded)
	}
}

// TestRunEmptyDocument confirms a gazette with no auction section is a
// successful run with zero records.
func TestRunEmptyDocument(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf")}
	pages := &fakePages{pages: []string{"PAUC section only"}}
	sink := newFakeSink()
	c := newTestCoordinator(t, source, pages, sink, nil, CoordinatorConfig{})

	report, err := c.Run(context.Background(), "run-4", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != auction.RunStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", report.Status)
	}
	if report.TotalRecordsFound != 0 || len(report.BatchOutcomes) != 0 {
		t.Fatalf("unexpected work on empty document: %+v", report)
	}
	if len(source.archived) != 1 {
		t.Fatal("empty document must still be archived")
	}
}

// TestRunSkipPages ensures front-matter pages are dropped before
// normalization.
func TestRunSkipPages(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf")}
	pages := &fakePages{pages: append(
		[]string{"Case No: 99/2024 table of contents entry"},
		gazettePages(2)...,
	)}
	sink := newFakeSink()
	c := newTestCoordinator(t, source, pages, sink, nil, CoordinatorConfig{SkipPages: 1})

	report, err := c.Run(context.Background(), "run-5", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TotalRecordsFound != 2 {
		t.Fatalf("found = %d, want 2; front matter must be skipped", report.TotalRecordsFound)
	}
}

// TestRunExistingKeyLookupDegrades verifies a failed duplicate lookup
// processes everything and records a warning.
func TestRunExistingKeyLookupDegrades(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf")}
	pages := &fakePages{pages: gazettePages(3)}
	sink := newFakeSink()
	sink.existingErr = errors.New("database offline")
	c := newTestCoordinator(t, source, pages, sink, nil, CoordinatorConfig{})

	report, err := c.Run(context.Background(), "run-6", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TotalSucceeded != 3 || report.TotalSkipped != 0 {
		t.Fatalf("succeeded=%d skipped=%d, want all processed", report.TotalSucceeded, report.TotalSkipped)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "duplicate suppression unavailable") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing degradation warning: %v", report.Warnings)
	}
}

// TestRunSuppressesDuplicates checks already-stored records are skipped.
func TestRunSuppressesDuplicates(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf")}
	pages := &fakePages{pages: gazettePages(3)}
	sink := newFakeSink()
	sink.existing = map[string]struct{}{"2/2024": {}}
	c := newTestCoordinator(t, source, pages, sink, nil, CoordinatorConfig{})

	report, err := c.Run(context.Background(), "run-7", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.TotalSucceeded != 2 || report.TotalSkipped != 1 {
		t.Fatalf("succeeded=%d skipped=%d, want 2 and 1", report.TotalSucceeded, report.TotalSkipped)
	}
}

// TestRunArchiveFailureIsWarning ensures a failed archive degrades to a
// warning on an otherwise successful run.
func TestRunArchiveFailureIsWarning(t *testing.T) {
	t.Parallel()

	source := &fakeSource{data: []byte("pdf"), archErr: errors.New("bucket unreachable")}
	pages := &fakePages{pages: gazettePages(2)}
	sink := newFakeSink()
	c := newTestCoordinator(t, source, pages, sink, nil, CoordinatorConfig{})

	report, err := c.Run(context.Background(), "run-8", "gov.pdf")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != auction.RunStatusSucceeded {
		t.Fatalf("status = %s, want succeeded", report.Status)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "archive failed") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing archive warning: %v", report.Warnings)
	}
}
