// Package pdf contains tests for content-stream text assembly.
package pdf

import "testing"

// TestTextFromContentStream covers the operators gazette pages use.
func TestTextFromContentStream(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			"tj show text",
			"BT\n(Case No: 1/2024) Tj\nET",
			"Case No: 1/2024",
		},
		{
			"tj array",
			"[(Case No: ) (1/2024)] TJ",
			"Case No: 1/2024",
		},
		{
			"td word break",
			"(Case) Tj\n1 0 Td\n(No: 1/2024) Tj",
			"Case No: 1/2024",
		},
		{
			"t-star newline",
			"(first line) Tj\nT*\n(second line) Tj",
			"first line\nsecond line",
		},
		{
			"quote next line",
			"(first) Tj\n(second) '",
			"first\nsecond",
		},
		{
			"ignores non-text operators",
			"q\n1 0 0 1 50 700 cm\n(visible) Tj\nQ",
			"visible",
		},
		{
			"empty stream",
			"",
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := textFromContentStream([]byte(tc.content)); got != tc.want {
				t.Fatalf("textFromContentStream() = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestDecodeStringLiteral covers named and octal escapes.
func TestDecodeStringLiteral(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Case No: 1/2024", "Case No: 1/2024"},
		{"named escapes", `line\none\ttab`, "line\none\ttab"},
		{"escaped parens", `\(brackets\)`, "(brackets)"},
		{"escaped backslash", `a\\b`, `a\b`},
		{"octal escape", `\101BC`, "ABC"},
		{"short octal", `\12`, "\n"},
		{"trailing backslash", `abc\`, `abc\`},
		{"unknown escape kept", `a\zb`, "azb"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := decodeStringLiteral([]byte(tc.raw)); got != tc.want {
				t.Fatalf("decodeStringLiteral(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

// TestPagesRejectsEmptyInput ensures empty documents fail fast.
func TestPagesRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	if _, err := NewExtractor().Pages(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}
