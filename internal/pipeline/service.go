package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ytget/media-transcriber/internal/extract"
	"github.com/ytget/media-transcriber/internal/model"
	"github.com/ytget/media-transcriber/internal/store"
)

// Service owns the task registry, the FIFO queue and the single sequential
// worker that runs the download/extract/transcribe stages. Tasks are
// identified by their sanitized label; tasks submitted without a label are
// keyed by URL until the downloader reports the remote title.
//
// All stages run on one worker goroutine at a time: the downstream
// collaborators (in particular the transcription model instance) are not
// safe to share across concurrent invocations.
type Service struct {
	store     *store.Store
	dl        Downloader
	ex        AudioExtractor
	tr        Transcriber
	log       *logrus.Entry
	events    *mailbox
	closeOnce sync.Once

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   map[string]*model.Task
	labels  map[string]string // registry key -> label that claimed the folder
	order   []string          // registry keys in insertion order
	queue   []*model.Task
	running bool
}

// NewService creates a pipeline service. obs may be nil for silent runs.
func NewService(st *store.Store, dl Downloader, ex AudioExtractor, tr Transcriber, obs Observer, log *logrus.Entry) *Service {
	s := &Service{
		store:  st,
		dl:     dl,
		ex:     ex,
		tr:     tr,
		log:    log,
		tasks:  make(map[string]*model.Task),
		labels: make(map[string]string),
	}
	s.cond = sync.NewCond(&s.mu)
	if obs != nil {
		s.events = newMailbox(obs, DefaultMailboxSize)
	}
	return s
}

// Close flushes and stops the observer mailbox. Call after Wait.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		if s.events != nil {
			s.events.close()
		}
	})
}

// Reconcile seeds the registry from the artifact store: every label with a
// persisted transcript becomes a Completed task (Summarized when a summary
// exists too) without any pipeline stage running. Returns the number of
// tasks reconstructed.
func (s *Service) Reconcile() (int, error) {
	statuses, err := s.store.ListLabels()
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, st := range statuses {
		if !st.HasTranscript {
			// A label folder without a transcript means a run died between
			// transcription and persistence; there is nothing durable to
			// trust, so no task is reconstructed for it.
			continue
		}
		key := store.Sanitize(st.Label)
		if _, exists := s.tasks[key]; exists {
			continue
		}

		state := model.StateCompleted
		if st.HasSummary {
			state = model.StateSummarized
		}
		t := &model.Task{
			ID:    uuid.NewString(),
			Label: st.Label,
			State: state,
		}
		s.tasks[key] = t
		s.labels[key] = st.Label
		s.order = append(s.order, key)
		s.publishState(t)
		count++
	}
	return count, nil
}

// Submit registers a (label, URL) pair and queues it for processing.
// Re-submitting a label that is queued, active or done collapses onto the
// existing task and is a no-op; re-submitting a Failed label re-queues it
// from scratch. Two distinct labels that sanitize to the same folder name
// get a numeric suffix so they never share an artifact folder.
func (s *Service) Submit(label, url string) *model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var key, effective string
	if label == "" {
		key = urlKey(url)
	} else {
		effective, key = s.resolveLabelLocked(label)
	}

	if existing, ok := s.tasks[key]; ok {
		if existing.State == model.StateFailed {
			existing.State = model.StatePending
			existing.LastError = ""
			existing.SegmentsDone = 0
			existing.SegmentsTotal = 0
			existing.StartedAt = time.Now()
			existing.FinishedAt = time.Time{}
			s.queue = append(s.queue, existing)
			s.publishState(existing)
			s.ensureWorkerLocked()
		}
		return existing
	}

	t := &model.Task{
		ID:        uuid.NewString(),
		Label:     effective,
		URL:       url,
		State:     model.StatePending,
		StartedAt: time.Now(),
	}
	s.tasks[key] = t
	if effective != "" {
		s.labels[key] = effective
	}
	s.order = append(s.order, key)
	s.queue = append(s.queue, t)
	s.publishState(t)
	s.ensureWorkerLocked()
	return t
}

// SubmitAll submits every pair in order. Empty input is an input error and
// creates no tasks.
func (s *Service) SubmitAll(pairs []extract.Pair) (int, error) {
	if len(pairs) == 0 {
		return 0, ErrNoInput
	}
	for _, p := range pairs {
		s.Submit(p.Label, p.URL)
	}
	return len(pairs), nil
}

// Wait blocks until the queue is drained and the worker is idle
func (s *Service) Wait() {
	s.mu.Lock()
	for s.running || len(s.queue) > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Tasks returns all known tasks in submission order
func (s *Service) Tasks() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Task, 0, len(s.order))
	for _, key := range s.order {
		if t, ok := s.tasks[key]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Task returns the task registered for label, if any
func (s *Service) Task(label string) (*model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[store.Sanitize(label)]
	return t, ok
}

// CompletedTasks returns the tasks eligible for summarization
func (s *Service) CompletedTasks() []*model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Task
	for _, key := range s.order {
		if t, ok := s.tasks[key]; ok && t.State == model.StateCompleted {
			out = append(out, t)
		}
	}
	return out
}

// MarkSummarized transitions a Completed task to Summarized
func (s *Service) MarkSummarized(label string) error {
	s.mu.Lock()
	t, ok := s.tasks[store.Sanitize(label)]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("no task for label %q", label)
	}
	if !t.State.CanTransitionTo(model.StateSummarized) {
		state := t.State
		s.mu.Unlock()
		return fmt.Errorf("task %q is %s, not Completed", label, state)
	}
	t.State = model.StateSummarized
	t.FinishedAt = time.Now()
	s.mu.Unlock()

	s.publishState(t)
	return nil
}

// resolveLabelLocked maps a label onto its registry key, appending a
// numeric suffix when a different label already claimed the folder name.
// A label matches an existing claim when it is the same string or when the
// claim is its own sanitized form (the case for reconciled tasks, whose
// labels are folder names).
func (s *Service) resolveLabelLocked(label string) (effective, key string) {
	effective = label
	for i := 2; ; i++ {
		key = store.Sanitize(effective)
		claimed, exists := s.labels[key]
		if !exists || claimed == effective || claimed == store.Sanitize(effective) {
			return effective, key
		}
		effective = fmt.Sprintf("%s (%d)", label, i)
	}
}

// ensureWorkerLocked starts the drain goroutine unless one is already
// running. The flag is owned by the registry mutex, so a submit racing a
// finishing worker can never start a second one.
func (s *Service) ensureWorkerLocked() {
	if s.running {
		return
	}
	s.running = true
	go s.drainQueue()
}

// drainQueue processes queued tasks one at a time until the queue is
// observed empty, then clears the running flag under the same lock
func (s *Service) drainQueue() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.runTask(t)
	}
}

// runTask drives one task through download, extraction, transcription and
// persistence. Collaborator failures become a Failed state with the
// captured message; nothing escapes to kill the worker.
func (s *Service) runTask(t *model.Task) {
	ctx := context.Background()
	scratch := s.store.ScratchDir()

	s.transition(t, model.StateDownloading)
	videoPath, title, err := s.dl.Download(ctx, t.URL, scratch)
	if err != nil {
		s.fail(t, &DownloadError{URL: t.URL, Err: err})
		return
	}
	if t.Label == "" {
		s.adoptLabel(t, title)
	}

	s.transition(t, model.StateExtracting)
	audioPath, err := s.ex.ExtractAudio(ctx, t.URL, videoPath, scratch, t.Label)
	if err != nil {
		s.fail(t, &ExtractionError{Label: t.Label, Err: err})
		return
	}

	s.transition(t, model.StateTranscribing)
	segments, err := s.tr.Transcribe(ctx, audioPath, func(current, total int) {
		s.progress(t, current, total)
	})
	if err != nil {
		s.fail(t, &TranscriptionError{Label: t.Label, Err: err})
		return
	}

	// The transcript must be on disk before the task counts as Completed:
	// on restart only the filesystem is trusted.
	if err := s.store.WriteTranscript(t.Label, model.FormatTranscript(segments)); err != nil {
		s.fail(t, &TranscriptionError{Label: t.Label, Err: err})
		return
	}
	if err := s.store.AdoptMedia(t.Label, videoPath, audioPath); err != nil {
		s.log.WithField("task", t.Label).WithError(err).Warn("could not move media into artifact folder")
	}

	s.mu.Lock()
	t.FinishedAt = time.Now()
	s.mu.Unlock()
	s.transition(t, model.StateCompleted)
}

// adoptLabel re-keys a URL-keyed task once the downloader reported the
// remote title, resolving folder-name conflicts with a numeric suffix
func (s *Service) adoptLabel(t *model.Task, title string) {
	if title == "" {
		title = t.URL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey := urlKey(t.URL)
	delete(s.tasks, oldKey)

	effective := title
	for i := 2; ; i++ {
		key := store.Sanitize(effective)
		if _, taken := s.tasks[key]; !taken {
			t.Label = effective
			s.tasks[key] = t
			s.labels[key] = effective
			for idx, k := range s.order {
				if k == oldKey {
					s.order[idx] = key
					break
				}
			}
			return
		}
		effective = fmt.Sprintf("%s (%d)", title, i)
	}
}

func (s *Service) transition(t *model.Task, next model.TaskState) {
	s.mu.Lock()
	if !t.State.CanTransitionTo(next) {
		state := t.State
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{"task": t.DisplayTitle(), "from": state, "to": next}).
			Error("illegal state transition dropped")
		return
	}
	t.State = next
	s.mu.Unlock()

	s.publishState(t)
	s.log.WithFields(logrus.Fields{"task": t.DisplayTitle(), "state": next.String()}).Info("task state changed")
}

func (s *Service) progress(t *model.Task, current, total int) {
	s.mu.Lock()
	t.SegmentsDone = current
	t.SegmentsTotal = total
	percent := t.Percent()
	label := t.DisplayTitle()
	s.mu.Unlock()

	if s.events != nil {
		s.events.post(event{kind: eventProgress, label: label, percent: percent})
	}
}

func (s *Service) fail(t *model.Task, err error) {
	s.mu.Lock()
	t.State = model.StateFailed
	t.LastError = err.Error()
	t.FinishedAt = time.Now()
	label := t.DisplayTitle()
	s.mu.Unlock()

	if s.events != nil {
		s.events.post(event{kind: eventError, label: label, message: err.Error()})
		s.events.post(event{kind: eventState, label: label, state: model.StateFailed})
	}
	s.log.WithField("task", label).WithError(err).Error("task failed")
}

func (s *Service) publishState(t *model.Task) {
	if s.events == nil {
		return
	}
	s.events.post(event{kind: eventState, label: t.DisplayTitle(), state: t.State})
}

// urlKey keys tasks submitted without a label. The NUL byte cannot appear
// in a sanitized label, so URL keys never collide with label keys.
func urlKey(url string) string {
	return "\x00" + url
}
