package summarize

import (
	"context"

	"github.com/ytget/media-transcriber/internal/model"
)

// Summarizer sends text to a remote summarization service and returns the
// produced summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// TaskSource exposes the tasks eligible for summarization and records the
// outcome. Eligibility is decided from task state, never from display text.
type TaskSource interface {
	CompletedTasks() []*model.Task
	MarkSummarized(label string) error
}

// TranscriptStore is the artifact access the summarizer needs
type TranscriptStore interface {
	ReadTranscript(label string) (string, error)
	WriteSummary(label, text string) error
}
