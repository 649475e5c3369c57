package model

// TaskState represents the lifecycle state of a pipeline task
type TaskState string

const (
	// StatePending means the task is queued but not started
	StatePending TaskState = "Pending"

	// StateDownloading means the video download is in progress
	StateDownloading TaskState = "Downloading"

	// StateExtracting means audio is being extracted from the video
	StateExtracting TaskState = "Extracting"

	// StateTranscribing means the audio is being transcribed
	StateTranscribing TaskState = "Transcribing"

	// StateCompleted means the transcript has been persisted
	StateCompleted TaskState = "Completed"

	// StateSummarized means a summary has been persisted on top of the transcript
	StateSummarized TaskState = "Summarized"

	// StateFailed means a stage failed; the task keeps the error message
	StateFailed TaskState = "Failed"
)

// String returns the string representation of TaskState
func (ts TaskState) String() string {
	return string(ts)
}

// IsActive returns true if a pipeline stage is currently running for the task
func (ts TaskState) IsActive() bool {
	return ts == StateDownloading || ts == StateExtracting || ts == StateTranscribing
}

// IsDone returns true once the transcript exists on disk
func (ts TaskState) IsDone() bool {
	return ts == StateCompleted || ts == StateSummarized
}

// IsTerminal returns true if no further transition is possible within a run
func (ts TaskState) IsTerminal() bool {
	return ts == StateSummarized || ts == StateFailed
}

// CanTransitionTo reports whether moving to next is a legal transition.
// Transcribing self-loops for progress updates; Completed self-loops when a
// summarization attempt fails (summary failure never regresses state).
func (ts TaskState) CanTransitionTo(next TaskState) bool {
	switch ts {
	case StatePending:
		return next == StateDownloading
	case StateDownloading:
		return next == StateExtracting || next == StateFailed
	case StateExtracting:
		return next == StateTranscribing || next == StateFailed
	case StateTranscribing:
		return next == StateTranscribing || next == StateCompleted || next == StateFailed
	case StateCompleted:
		return next == StateCompleted || next == StateSummarized
	default:
		return false
	}
}
