package summarize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DefaultConcurrency is the worker pool size for summarization
const DefaultConcurrency = 8

// ErrBusy is returned when a batch is already running
var ErrBusy = errors.New("summarization batch already in progress")

// Result reports the outcome of one batch
type Result struct {
	Total     int
	Succeeded int
	Failed    int
}

// Service fans completed-but-unsummarized tasks out to a bounded worker
// pool. Items are independent: each worker only touches its own item's
// artifact folder, so no cross-item locking is needed. Per-item failures
// are logged and never abort siblings.
type Service struct {
	source      TaskSource
	store       TranscriptStore
	summarizer  Summarizer
	prompt      string
	concurrency int
	log         *logrus.Entry
	inProgress  atomic.Bool
}

// NewService creates a batch summarizer. concurrency <= 0 selects the
// default pool size.
func NewService(source TaskSource, store TranscriptStore, summarizer Summarizer, prompt string, concurrency int, log *logrus.Entry) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		source:      source,
		store:       store,
		summarizer:  summarizer,
		prompt:      prompt,
		concurrency: concurrency,
		log:         log,
	}
}

// Run summarizes every currently Completed task and returns once all of
// them finished, successfully or not. A second Run while one is active
// returns ErrBusy.
func (s *Service) Run(ctx context.Context) (Result, error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer s.inProgress.Store(false)

	tasks := s.source.CompletedTasks()
	res := Result{Total: len(tasks)}
	if len(tasks) == 0 {
		return res, nil
	}

	labels := make(chan string, len(tasks))
	for _, t := range tasks {
		labels <- t.Label
	}
	close(labels)

	workers := s.concurrency
	if workers > len(tasks) {
		workers = len(tasks)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for label := range labels {
				err := s.summarizeOne(ctx, label)

				mu.Lock()
				if err != nil {
					res.Failed++
				} else {
					res.Succeeded++
				}
				mu.Unlock()

				if err != nil {
					s.log.WithField("task", label).WithError(err).Warn("summarization failed")
				}
			}
		}()
	}
	wg.Wait()

	s.log.WithFields(logrus.Fields{
		"total": res.Total, "succeeded": res.Succeeded, "failed": res.Failed,
	}).Info("summarization batch finished")
	return res, nil
}

func (s *Service) summarizeOne(ctx context.Context, label string) error {
	text, err := s.store.ReadTranscript(label)
	if err != nil {
		return err
	}

	summary, err := s.summarizer.Summarize(ctx, s.prompt+"\n\n"+text)
	if err != nil {
		return err
	}

	if err := s.store.WriteSummary(label, summary); err != nil {
		return fmt.Errorf("persist summary: %w", err)
	}
	return s.source.MarkSummarized(label)
}
