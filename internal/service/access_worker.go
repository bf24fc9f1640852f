package service

import (
	"context"
	"strings"

	"github.com/mssola/useragent"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/domain"
	"github.com/qmsworks/qms/internal/metrics"
	"github.com/qmsworks/qms/internal/models"
)

// Compile-time check: *AccessWorker must satisfy domain.AccessRecorder.
var _ domain.AccessRecorder = (*AccessWorker)(nil)

// AccessWriter persists access events.
type AccessWriter interface {
	RecordAccess(ctx context.Context, e models.AccessEvent) error
}

// AccessWorker buffers access events and writes them via a single worker goroutine.
// Access events are operational records; losing one under load is acceptable,
// unlike audit trail entries which are written in the mutating transaction.
type AccessWorker struct {
	writer AccessWriter
	log    *logrus.Logger
	jobs   chan *models.AccessEvent
}

// NewAccessWorker creates an AccessWorker with the given queue capacity.
func NewAccessWorker(writer AccessWriter, log *logrus.Logger, queueSize int) *AccessWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &AccessWorker{
		writer: writer,
		log:    log,
		jobs:   make(chan *models.AccessEvent, queueSize),
	}
}

// Record builds an access event and enqueues it. actor may be nil for
// unauthenticated events such as failed logins.
func (w *AccessWorker) Record(
	event string, actor *models.Actor, username string, meta models.ClientMeta, detail map[string]any,
) {
	e := &models.AccessEvent{
		Event:     event,
		Username:  username,
		ClientIP:  meta.IP,
		UserAgent: meta.UserAgent,
		Detail:    detail,
	}

	if actor != nil {
		e.UserID = actor.ID
		if e.Username == "" {
			e.Username = actor.Username
		}
	}

	w.Enqueue(e)
}

// Enqueue adds an access event. Non-blocking; drops the event if the queue is full.
func (w *AccessWorker) Enqueue(e *models.AccessEvent) {
	select {
	case w.jobs <- e:
		metrics.AccessQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.log.WithField("event", e.Event).Warn("access queue full, dropping event")
	}
}

// Run processes access events until the context is cancelled, then drains remaining events.
func (w *AccessWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case e := <-w.jobs:
			w.process(e)
		}
	}
}

func (w *AccessWorker) drain() {
	for {
		select {
		case e := <-w.jobs:
			w.process(e)
		default:
			return
		}
	}
}

func (w *AccessWorker) process(e *models.AccessEvent) {
	metrics.AccessQueueDepth.Set(float64(len(w.jobs)))

	e.Browser, e.OS = describeAgent(e.UserAgent)

	if err := w.writer.RecordAccess(context.Background(), *e); err != nil {
		w.log.WithError(err).WithField("event", e.Event).Warn("access record failed")
	}
}

// describeAgent returns "name version" for the browser and the OS of a
// User-Agent header. Both are empty when ua is empty.
func describeAgent(ua string) (browser, os string) {
	if ua == "" {
		return "", ""
	}

	parsed := useragent.New(ua)
	name, version := parsed.Browser()

	return strings.TrimSpace(name + " " + version), parsed.OS()
}
