package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/isomatch/internal/models"
)

// EventRecorder persists run events.
type EventRecorder interface {
	RecordEvent(ctx context.Context, tenantID, action, runID, actor string, detail map[string]any) (*models.RunEvent, error)
}

// EventPublisher fans recorded events out to live subscribers.
type EventPublisher interface {
	Publish(ev *models.RunEvent)
}

// EventEnqueuer accepts run events for asynchronous recording.
type EventEnqueuer interface {
	Enqueue(job *EventJob)
}

// EventJob is a single run event waiting to be written.
type EventJob struct {
	TenantID string
	Action   string
	RunID    string
	Actor    string
	Detail   map[string]any
}

// EventWorker buffers run events and writes them from one goroutine so
// request handling never waits on the event table.
type EventWorker struct {
	recorder  EventRecorder
	publisher EventPublisher
	log       *logrus.Logger
	jobs      chan *EventJob
}

// NewEventWorker creates an EventWorker with the given queue capacity.
func NewEventWorker(recorder EventRecorder, log *logrus.Logger, queueSize int) *EventWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &EventWorker{
		recorder: recorder,
		log:      log,
		jobs:     make(chan *EventJob, queueSize),
	}
}

// SetPublisher streams every recorded event to p. Call before Run.
func (w *EventWorker) SetPublisher(p EventPublisher) {
	w.publisher = p
}

// Enqueue adds a job without blocking. The job is dropped when the queue is full.
func (w *EventWorker) Enqueue(job *EventJob) {
	select {
	case w.jobs <- job:
	default:
		w.log.WithFields(logrus.Fields{
			"action": job.Action,
			"run_id": job.RunID,
		}).Warn("event queue full, dropping entry")
	}
}

// Run writes jobs until ctx is cancelled, then drains what is left.
func (w *EventWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()

			return
		case job := <-w.jobs:
			w.process(job)
		}
	}
}

func (w *EventWorker) drain() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		default:
			return
		}
	}
}

func (w *EventWorker) process(job *EventJob) {
	ev, err := w.recorder.RecordEvent(context.Background(), job.TenantID, job.Action, job.RunID, job.Actor, job.Detail)
	if err != nil {
		w.log.WithError(err).WithField("action", job.Action).Warn("run event record failed")

		return
	}

	if w.publisher != nil {
		w.publisher.Publish(ev)
	}
}
