package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ytget/media-transcriber/internal/model"
	"github.com/ytget/media-transcriber/internal/store"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// memorySource is an in-memory TaskSource over completed labels
type memorySource struct {
	mu    sync.Mutex
	tasks map[string]*model.Task
}

func newMemorySource(labels ...string) *memorySource {
	src := &memorySource{tasks: make(map[string]*model.Task)}
	for _, label := range labels {
		src.tasks[label] = &model.Task{Label: label, State: model.StateCompleted}
	}
	return src
}

func (s *memorySource) CompletedTasks() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Task
	for _, t := range s.tasks {
		if t.State == model.StateCompleted {
			out = append(out, t)
		}
	}
	return out
}

func (s *memorySource) MarkSummarized(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[label]
	if !ok || t.State != model.StateCompleted {
		return errors.New("not completed")
	}
	t.State = model.StateSummarized
	return nil
}

func (s *memorySource) state(label string) model.TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[label].State
}

// fakeSummarizer fails for configured inputs and can hold until released
type fakeSummarizer struct {
	failFor   string
	gate      chan struct{}
	calls     atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if cur <= m || f.maxActive.CompareAndSwap(m, cur) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.failFor != "" && strings.Contains(text, f.failFor) {
		return "", errors.New("remote service rejected the text")
	}
	return "summary of: " + lastLine(text), nil
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	return lines[len(lines)-1]
}

func newTestStore(t *testing.T, labels ...string) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), 0, nil)
	if err != nil {
		t.Fatalf("store.New() failed: %v", err)
	}
	for _, label := range labels {
		if err := st.WriteTranscript(label, "[0.000 --> 1.000] "+label); err != nil {
			t.Fatalf("WriteTranscript() failed: %v", err)
		}
	}
	return st
}

func TestRun_SummarizesAllCompleted(t *testing.T) {
	labels := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		labels = append(labels, fmt.Sprintf("Talk %d", i))
	}
	st := newTestStore(t, labels...)
	src := newMemorySource(labels...)
	sum := &fakeSummarizer{}

	svc := NewService(src, st, sum, "Summarize this:", 8, testLog())
	res, err := svc.Run(t.Context())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if res.Total != 5 || res.Succeeded != 5 || res.Failed != 0 {
		t.Errorf("Result = %+v, expected 5/5/0", res)
	}
	if got := sum.calls.Load(); got != 5 {
		t.Errorf("Expected exactly 5 summarizer calls, got %d", got)
	}
	for _, label := range labels {
		if src.state(label) != model.StateSummarized {
			t.Errorf("Expected %s to be Summarized, got %s", label, src.state(label))
		}
		if !st.HasSummary(label) {
			t.Errorf("Expected persisted summary for %s", label)
		}
	}
}

func TestRun_PromptIsPrefixed(t *testing.T) {
	st := newTestStore(t, "Talk")
	src := newMemorySource("Talk")

	var captured string
	sum := &capturingSummarizer{onText: func(text string) { captured = text }}

	svc := NewService(src, st, sum, "Summarize the following transcript:", 1, testLog())
	if _, err := svc.Run(t.Context()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !strings.HasPrefix(captured, "Summarize the following transcript:\n\n") {
		t.Errorf("Expected instructional prefix, got %q", captured)
	}
	if !strings.Contains(captured, "[0.000 --> 1.000] Talk") {
		t.Errorf("Expected transcript content in prompt, got %q", captured)
	}
}

type capturingSummarizer struct {
	onText func(string)
}

func (c *capturingSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	c.onText(text)
	return "ok", nil
}

func TestRun_FailuresDoNotAbortSiblings(t *testing.T) {
	labels := []string{"A", "B", "C", "D"}
	st := newTestStore(t, labels...)
	src := newMemorySource(labels...)
	sum := &fakeSummarizer{failFor: "B"}

	svc := NewService(src, st, sum, "prompt", 2, testLog())
	res, err := svc.Run(t.Context())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if res.Total != 4 || res.Succeeded != 3 || res.Failed != 1 {
		t.Errorf("Result = %+v, expected 4 total, 3 succeeded, 1 failed", res)
	}
	if src.state("B") != model.StateCompleted {
		t.Errorf("Failed item must stay Completed, got %s", src.state("B"))
	}
	if st.HasSummary("B") {
		t.Error("Failed item must not have a persisted summary")
	}
	for _, label := range []string{"A", "C", "D"} {
		if src.state(label) != model.StateSummarized {
			t.Errorf("Expected %s Summarized despite sibling failure, got %s", label, src.state(label))
		}
	}
}

func TestRun_MissingTranscriptIsPerItemFailure(t *testing.T) {
	st := newTestStore(t, "HasFile")
	src := newMemorySource("HasFile", "NoFile")
	sum := &fakeSummarizer{}

	svc := NewService(src, st, sum, "prompt", 2, testLog())
	res, err := svc.Run(t.Context())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if res.Succeeded != 1 || res.Failed != 1 {
		t.Errorf("Result = %+v, expected 1 succeeded and 1 failed", res)
	}
	if src.state("NoFile") != model.StateCompleted {
		t.Errorf("Expected NoFile to stay Completed, got %s", src.state("NoFile"))
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	labels := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		labels = append(labels, fmt.Sprintf("T%d", i))
	}
	st := newTestStore(t, labels...)
	src := newMemorySource(labels...)

	gate := make(chan struct{})
	sum := &fakeSummarizer{gate: gate}

	svc := NewService(src, st, sum, "prompt", 3, testLog())

	done := make(chan Result)
	go func() {
		res, _ := svc.Run(context.Background())
		done <- res
	}()

	// Let the pool saturate, then release everything
	for sum.active.Load() < 3 {
		time.Sleep(time.Millisecond)
	}
	close(gate)
	res := <-done

	if res.Succeeded != 10 {
		t.Errorf("Expected 10 successes, got %+v", res)
	}
	if got := sum.maxActive.Load(); got > 3 {
		t.Errorf("Observed %d concurrent calls, pool limit is 3", got)
	}
}

func TestRun_GuardsAgainstReentry(t *testing.T) {
	st := newTestStore(t, "Talk")
	src := newMemorySource("Talk")

	gate := make(chan struct{})
	sum := &fakeSummarizer{gate: gate}

	svc := NewService(src, st, sum, "prompt", 1, testLog())

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background())
		close(done)
	}()

	for sum.active.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, err := svc.Run(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy for concurrent Run, got %v", err)
	}

	close(gate)
	<-done

	// After the batch finishes a new one may start
	if _, err := svc.Run(context.Background()); err != nil {
		t.Errorf("Expected Run to be allowed after batch finished, got %v", err)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	st := newTestStore(t)
	src := newMemorySource()
	sum := &fakeSummarizer{}

	svc := NewService(src, st, sum, "prompt", 8, testLog())
	res, err := svc.Run(t.Context())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res.Total != 0 || sum.calls.Load() != 0 {
		t.Errorf("Expected empty batch to do nothing, got %+v with %d calls", res, sum.calls.Load())
	}
}
