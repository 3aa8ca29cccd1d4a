package gazette

import (
	"fmt"
	"strings"
	"testing"
)

// TestSegmentSplitsAtEachMarker covers the basic two-record split,
// including a letter-prefixed case number.
func TestSegmentSplitsAtEachMarker(t *testing.T) {
	t.Parallel()

	s, err := NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	blocks, warnings := s.Segment("Case No: 1/2024 foo Case No: D2/2024 bar")
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].NaturalKey != "1/2024" || blocks[1].NaturalKey != "D2/2024" {
		t.Fatalf("unexpected keys: %q, %q", blocks[0].NaturalKey, blocks[1].NaturalKey)
	}
	if !strings.Contains(blocks[0].RawText, "foo") || strings.Contains(blocks[0].RawText, "bar") {
		t.Fatalf("block 1 has wrong text: %q", blocks[0].RawText)
	}
	if !strings.Contains(blocks[1].RawText, "bar") {
		t.Fatalf("block 2 has wrong text: %q", blocks[1].RawText)
	}
	if blocks[0].Ordinal != 1 || blocks[1].Ordinal != 2 {
		t.Fatalf("ordinals not sequential: %d, %d", blocks[0].Ordinal, blocks[1].Ordinal)
	}
}

// TestSegmentFewMarkers verifies zero- and one-marker text becomes a
// single block.
func TestSegmentFewMarkers(t *testing.T) {
	t.Parallel()

	s, err := NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	cases := []struct {
		name    string
		text    string
		wantKey string
		warns   int
	}{
		{"one marker", "Case No: 55/2023 single notice", "55/2023", 0},
		{"no markers", "text without any case numbers at all", "", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			blocks, warnings := s.Segment(tc.text)
			if len(blocks) != 1 {
				t.Fatalf("expected 1 block, got %d", len(blocks))
			}
			if blocks[0].RawText != tc.text {
				t.Fatalf("block text = %q, want full text", blocks[0].RawText)
			}
			if blocks[0].NaturalKey != tc.wantKey {
				t.Fatalf("key = %q, want %q", blocks[0].NaturalKey, tc.wantKey)
			}
			if len(warnings) != tc.warns {
				t.Fatalf("warnings = %v, want %d", warnings, tc.warns)
			}
		})
	}
}

// TestSegmentEmptyText ensures empty or whitespace input yields no blocks.
func TestSegmentEmptyText(t *testing.T) {
	t.Parallel()

	s, err := NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	for _, text := range []string{"", "   ", "\n\t"} {
		blocks, warnings := s.Segment(text)
		if blocks != nil || warnings != nil {
			t.Fatalf("Segment(%q) = %v, %v; want nil, nil", text, blocks, warnings)
		}
	}
}

// TestSegmentReconstruction checks that concatenating all block texts
// recovers every record's content exactly once.
func TestSegmentReconstruction(t *testing.T) {
	t.Parallel()

	s, err := NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	var b strings.Builder
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "Case No: %d/2024 notice body %d ", i, i)
	}
	text := b.String()

	blocks, _ := s.Segment(text)
	if len(blocks) != 7 {
		t.Fatalf("expected 7 blocks, got %d", len(blocks))
	}
	var rebuilt []string
	for i, blk := range blocks {
		if blk.Ordinal != i+1 {
			t.Fatalf("block %d has ordinal %d", i, blk.Ordinal)
		}
		rebuilt = append(rebuilt, blk.RawText)
	}
	if got, want := strings.Join(rebuilt, " "), strings.TrimSpace(text); got != want {
		t.Fatalf("reconstruction mismatch:\n got %q\nwant %q", got, want)
	}
}

// TestSegmentCaseInsensitiveMarker ensures lowercase markers still split.
func TestSegmentCaseInsensitiveMarker(t *testing.T) {
	t.Parallel()

	s, err := NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	blocks, _ := s.Segment("case no: 9/2024 first case no: 10/2024 second")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].NaturalKey != "9/2024" {
		t.Fatalf("key = %q", blocks[0].NaturalKey)
	}
}

// TestNewSegmenterValidation covers bad patterns and wrong group counts.
func TestNewSegmenterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewSegmenter("("); err == nil {
		t.Fatal("expected error for invalid regex")
	}
	if _, err := NewSegmenter(`Case No: \d+/\d+`); err == nil {
		t.Fatal("expected error for pattern without capture group")
	}
	if _, err := NewSegmenter(`(Case) No: (\d+/\d+)`); err == nil {
		t.Fatal("expected error for pattern with two capture groups")
	}
}

// TestCountRecords checks the cheap marker count matches segmentation.
func TestCountRecords(t *testing.T) {
	t.Parallel()

	s, err := NewSegmenter("")
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}

	text := "Case No: 1/2024 a Case No: 2/2024 b Case No: 3/2024 c"
	if got := s.CountRecords(text); got != 3 {
		t.Fatalf("CountRecords() = %d, want 3", got)
	}
	blocks, _ := s.Segment(text)
	if len(blocks) != 3 {
		t.Fatalf("Segment() produced %d blocks, want 3", len(blocks))
	}
}
