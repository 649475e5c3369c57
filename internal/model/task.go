package model

import (
	"math"
	"strings"
	"time"
)

// Task represents a single submitted media item tracked through the pipeline
type Task struct {
	ID            string
	Label         string // human title; empty until remote metadata supplies one
	URL           string
	State         TaskState
	SegmentsDone  int // transcription progress, valid only while Transcribing
	SegmentsTotal int
	LastError     string // last error message if any
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Percent returns transcription progress as a rounded percentage, or 0 when
// no progress information is available
func (t *Task) Percent() int {
	if t.SegmentsTotal <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(t.SegmentsDone) / float64(t.SegmentsTotal)))
}

// DisplayTitle returns the label or falls back to the source URL
func (t *Task) DisplayTitle() string {
	if t.Label != "" && !strings.HasPrefix(t.Label, "http") {
		return t.Label
	}
	return t.URL
}
