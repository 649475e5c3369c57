package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoInput is returned when submitted input contained no usable URLs
var ErrNoInput = errors.New("no valid URLs in input")

// DownloadError marks a failure of the download stage
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ExtractionError marks a failure of the audio extraction stage
type ExtractionError struct {
	Label string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract audio for %q: %v", e.Label, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TranscriptionError marks a failure of the transcription stage, including
// a failure to persist a successful transcription
type TranscriptionError struct {
	Label string
	Err   error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcribe %q: %v", e.Label, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
