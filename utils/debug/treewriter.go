// Package debug holds helpers for readable dumps of nested structures in
// troubleshooting reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	indentUnit = "  "
	// long text values are cut in outlines, a dump is a map not a copy
	maxTextRunes = 120
)

// TreeWriter accumulates an indented outline line by line.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

// Line appends one formatted outline line at the given depth.
func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.w.WriteString(strings.Repeat(indentUnit, depth))
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock appends a labeled text value, quoted and truncated so control
// characters and runaway content never break the outline.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.w.WriteString(strings.Repeat(indentUnit, depth))
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	runes := []rune(raw)
	if len(runes) > maxTextRunes {
		return strconv.Quote(string(runes[:maxTextRunes])) + " +more"
	}
	return strconv.Quote(raw)
}
