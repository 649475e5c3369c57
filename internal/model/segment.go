package model

import (
	"fmt"
	"strings"
)

// Segment is a single timestamped unit of transcribed text
type Segment struct {
	Start float64 // seconds
	End   float64 // seconds
	Text  string
}

// FormatTranscript renders segments one per line as
// "[start --> end] text" with timestamps fixed to three decimals.
// This is the persisted transcript format.
func FormatTranscript(segments []Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%.3f --> %.3f] %s", seg.Start, seg.End, seg.Text))
	}
	return strings.Join(lines, "\n")
}
