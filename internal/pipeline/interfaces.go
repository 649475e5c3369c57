package pipeline

import (
	"context"

	"github.com/ytget/media-transcriber/internal/model"
)

// Downloader fetches the video behind a URL into destDir and reports the
// remote title.
type Downloader interface {
	Download(ctx context.Context, url, destDir string) (videoPath, title string, err error)
}

// AudioExtractor produces an audio file for a downloaded video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, url, videoPath, destDir, title string) (audioPath string, err error)
}

// Transcriber converts an audio file into ordered timestamped segments.
// It may invoke progress zero or more times before returning.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, progress func(current, total int)) ([]model.Segment, error)
}

// Observer receives task lifecycle notifications. Calls are delivered from
// a mailbox goroutine; the pipeline never blocks on an observer.
type Observer interface {
	OnStateChanged(label string, state model.TaskState)
	OnProgress(label string, percent int)
	OnError(label string, message string)
}
