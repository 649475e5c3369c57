package model

import "testing"

func TestTaskState_String(t *testing.T) {
	tests := []struct {
		state    TaskState
		expected string
	}{
		{StatePending, "Pending"},
		{StateDownloading, "Downloading"},
		{StateExtracting, "Extracting"},
		{StateTranscribing, "Transcribing"},
		{StateCompleted, "Completed"},
		{StateSummarized, "Summarized"},
		{StateFailed, "Failed"},
	}

	for _, test := range tests {
		if result := test.state.String(); result != test.expected {
			t.Errorf("String() for %v = %s, expected %s", test.state, result, test.expected)
		}
	}
}

func TestTaskState_IsActive(t *testing.T) {
	tests := []struct {
		state    TaskState
		expected bool
	}{
		{StatePending, false},
		{StateDownloading, true},
		{StateExtracting, true},
		{StateTranscribing, true},
		{StateCompleted, false},
		{StateSummarized, false},
		{StateFailed, false},
	}

	for _, test := range tests {
		if result := test.state.IsActive(); result != test.expected {
			t.Errorf("IsActive() for %s = %v, expected %v", test.state, result, test.expected)
		}
	}
}

func TestTaskState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		expected bool
	}{
		{StatePending, false},
		{StateDownloading, false},
		{StateTranscribing, false},
		{StateCompleted, false},
		{StateSummarized, true},
		{StateFailed, true},
	}

	for _, test := range tests {
		if result := test.state.IsTerminal(); result != test.expected {
			t.Errorf("IsTerminal() for %s = %v, expected %v", test.state, result, test.expected)
		}
	}
}

func TestTaskState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     TaskState
		to       TaskState
		expected bool
	}{
		{StatePending, StateDownloading, true},
		{StatePending, StateCompleted, false},
		{StateDownloading, StateExtracting, true},
		{StateDownloading, StateFailed, true},
		{StateDownloading, StateTranscribing, false},
		{StateExtracting, StateTranscribing, true},
		{StateExtracting, StateFailed, true},
		{StateExtracting, StateCompleted, false},
		{StateTranscribing, StateTranscribing, true},
		{StateTranscribing, StateCompleted, true},
		{StateTranscribing, StateFailed, true},
		{StateCompleted, StateSummarized, true},
		{StateCompleted, StateCompleted, true},
		{StateCompleted, StateFailed, false},
		{StateCompleted, StateDownloading, false},
		{StateSummarized, StateCompleted, false},
		{StateSummarized, StateSummarized, false},
		{StateFailed, StateDownloading, false},
		{StateFailed, StatePending, false},
	}

	for _, test := range tests {
		if result := test.from.CanTransitionTo(test.to); result != test.expected {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, expected %v", test.from, test.to, result, test.expected)
		}
	}
}
