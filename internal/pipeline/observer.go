package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/ytget/media-transcriber/internal/model"
)

// DefaultMailboxSize is the buffered capacity of the observer mailbox
const DefaultMailboxSize = 256

type eventKind int

const (
	eventState eventKind = iota
	eventProgress
	eventError
)

type event struct {
	kind    eventKind
	label   string
	state   model.TaskState
	percent int
	message string
}

// mailbox decouples the worker from the observer: events are posted
// non-blocking into a buffered channel and drained by a dedicated
// goroutine. When the buffer is full events are dropped rather than
// stalling the pipeline.
type mailbox struct {
	obs  Observer
	ch   chan event
	done chan struct{}
}

func newMailbox(obs Observer, size int) *mailbox {
	m := &mailbox{
		obs:  obs,
		ch:   make(chan event, size),
		done: make(chan struct{}),
	}
	go m.drain()
	return m
}

func (m *mailbox) drain() {
	for ev := range m.ch {
		switch ev.kind {
		case eventState:
			m.obs.OnStateChanged(ev.label, ev.state)
		case eventProgress:
			m.obs.OnProgress(ev.label, ev.percent)
		case eventError:
			m.obs.OnError(ev.label, ev.message)
		}
	}
	close(m.done)
}

func (m *mailbox) post(ev event) {
	select {
	case m.ch <- ev:
	default:
	}
}

// close stops the drain goroutine after delivering buffered events
func (m *mailbox) close() {
	close(m.ch)
	<-m.done
}

// LogObserver reports task events through the process logger. It is the
// default observer for headless runs.
type LogObserver struct {
	log *logrus.Entry
}

// NewLogObserver creates an observer backed by log
func NewLogObserver(log *logrus.Entry) *LogObserver {
	return &LogObserver{log: log}
}

func (o *LogObserver) OnStateChanged(label string, state model.TaskState) {
	o.log.WithFields(logrus.Fields{"task": label, "state": state.String()}).Info("task state changed")
}

func (o *LogObserver) OnProgress(label string, percent int) {
	o.log.WithFields(logrus.Fields{"task": label, "percent": percent}).Debug("transcription progress")
}

func (o *LogObserver) OnError(label string, message string) {
	o.log.WithFields(logrus.Fields{"task": label, "error": message}).Error("task failed")
}
