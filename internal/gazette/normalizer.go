// Package gazette implements the pure text stages of the pipeline:
// normalization of raw page text and segmentation into auction records.
package gazette

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultStopMarker ends extraction at the public-auction section of the
// gazette; pages from the first occurrence onward are irrelevant.
const DefaultStopMarker = "PAUC"

// DefaultBoilerplatePatterns remove masthead text, page footers, and
// disclaimer banners from extracted gazette pages. Removal is
// line-pattern-based, not positional.
var DefaultBoilerplatePatterns = []string{
	`STAATSKOERANT[^\n]*`,
	`GOVERNMENT GAZETTE[^\n]*`,
	`No\.\s*\d+\s*`,
	`Page\s*\d+\s*of\s*\d+`,
	`This gazette is also available free online at[^\n]*`,
	`HIGH ALERT: SCAM WARNING!!![^\n]*`,
	`CONTENTS / INHOUD[^\n]*`,
	`LEGAL NOTICES[^\n]*`,
	`WETLIKE KENNISGEWINGS[^\n]*`,
	`SALES IN EXECUTION AND OTHER PUBLIC SALES[^\n]*`,
	`GEREGTELIKE EN ANDER OPENBARE VERKOPE[^\n]*`,
}

// NormalizerConfig controls Normalizer behavior.
type NormalizerConfig struct {
	// StopMarker halts page concatenation at (and excluding) the first page
	// containing it, case-insensitive. Empty disables the check.
	StopMarker string
	// BoilerplatePatterns are regular expressions removed from the text.
	// Nil selects DefaultBoilerplatePatterns.
	BoilerplatePatterns []string
}

// Normalizer turns raw page text into a single clean, single-spaced,
// printable-ASCII string. Pure: no I/O, no side effects.
type Normalizer struct {
	stopMarker  string
	boilerplate []*regexp.Regexp
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NewNormalizer compiles the configured boilerplate patterns.
func NewNormalizer(cfg NormalizerConfig) (*Normalizer, error) {
	patterns := cfg.BoilerplatePatterns
	if patterns == nil {
		patterns = DefaultBoilerplatePatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile boilerplate pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Normalizer{
		stopMarker:  strings.ToUpper(cfg.StopMarker),
		boilerplate: compiled,
	}, nil
}

// Normalize concatenates page texts in order, stopping before the first
// page containing the stop marker, then strips boilerplate lines,
// non-printable characters, and whitespace runs. Empty input yields "".
func (n *Normalizer) Normalize(pages []string) string {
	var b strings.Builder
	for _, page := range pages {
		if page == "" {
			continue
		}
		if n.stopMarker != "" && strings.Contains(strings.ToUpper(page), n.stopMarker) {
			break
		}
		b.WriteString(page)
		b.WriteByte('\n')
	}

	text := b.String()
	for _, re := range n.boilerplate {
		text = re.ReplaceAllString(text, "")
	}
	text = stripNonPrintable(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// stripNonPrintable drops every byte outside 0x20-0x7E, keeping newlines
// so that line-anchored boilerplate boundaries survive until collapse.
func stripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 0x20 && c <= 0x7E) || c == '\n' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
