package gazette

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// DefaultMarkerPattern matches the start of one auction notice. The
// identifier group accepts an optional letter prefix (e.g. "D2/2024");
// gazettes mix plain-numeric and letter-prefixed case numbers, and the
// narrower numeric-only form drops valid records.
const DefaultMarkerPattern = `Case No:\s*([A-Z]*\d+/\d+)`

// Segmenter splits normalized gazette text into ordered record blocks at
// each occurrence of the record-start marker.
type Segmenter struct {
	marker *regexp.Regexp
}

// NewSegmenter compiles the marker pattern, case-insensitive. The pattern
// must contain exactly one capturing group: the record's natural key.
func NewSegmenter(pattern string) (*Segmenter, error) {
	if pattern == "" {
		pattern = DefaultMarkerPattern
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile marker pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("marker pattern %q must have exactly one capture group", pattern)
	}
	return &Segmenter{marker: re}, nil
}

// Segment splits text at each marker boundary. The marker text belongs to
// the block it opens. With zero or one markers the whole text is a single
// block; empty text yields no blocks. All-whitespace blocks are discarded
// without consuming an ordinal. Blocks whose own text yields no natural
// key are kept and reported as warnings rather than dropped.
func (s *Segmenter) Segment(text string) ([]auction.RecordBlock, []string) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	bounds := s.marker.FindAllStringIndex(text, -1)
	var pieces []string
	if len(bounds) <= 1 {
		pieces = []string{text}
	} else {
		pieces = make([]string, 0, len(bounds))
		for i, loc := range bounds {
			end := len(text)
			if i+1 < len(bounds) {
				end = bounds[i+1][0]
			}
			pieces = append(pieces, text[loc[0]:end])
		}
	}

	var blocks []auction.RecordBlock
	var warnings []string
	ordinal := 0
	for _, piece := range pieces {
		trimmed := strings.TrimSpace(piece)
		if trimmed == "" {
			continue
		}
		ordinal++
		// Re-extract the key from the block's own text so that the split
		// boundary and the key can never drift apart.
		key := s.NaturalKey(trimmed)
		if key == "" {
			warnings = append(warnings, fmt.Sprintf("record %d has no extractable case number", ordinal))
		}
		blocks = append(blocks, auction.RecordBlock{
			Ordinal:    ordinal,
			RawText:    trimmed,
			NaturalKey: key,
		})
	}
	return blocks, warnings
}

// NaturalKey returns the first case number found in the text, or "".
func (s *Segmenter) NaturalKey(text string) string {
	m := s.marker.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.ToUpper(m[1])
}

// CountRecords reports how many record markers occur in the text without
// building blocks; used to pick the processing strategy cheaply.
func (s *Segmenter) CountRecords(text string) int {
	return len(s.marker.FindAllStringIndex(text, -1))
}
