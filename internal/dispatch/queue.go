package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"clocksync.service/internal/core/model"
	"clocksync.service/pkg/logger"
	"clocksync.service/pkg/telemetry"
)

// Processor is a generic interface for any type that can process a queued
// timesheet event. The side-effect pipeline owns all of its failure handling,
// so there is nothing for the queue to retry or report.
type Processor interface {
	Process(ctx context.Context, event model.TimesheetEvent)
}

type job struct {
	event model.TimesheetEvent
	// remote carries the webhook request's span context across the queue so
	// the dispatch span joins the same trace.
	remote trace.SpanContext
}

// Queue is the in-process hand-off between the webhook handler and the
// side-effect pipeline. The handler responds as soon as the event is queued;
// a pool of workers runs the processing behind it.
type Queue struct {
	jobs chan job
	proc Processor
	wg   sync.WaitGroup
	stop sync.Once

	// Concurrency controls how many events can be processed at the same time.
	Concurrency int
}

// NewQueue creates a queue, ready to be started.
func NewQueue(proc Processor) *Queue {
	return &Queue{
		jobs:        make(chan job, 256),
		proc:        proc,
		Concurrency: 10, // Default to 10 concurrent processors
	}
}

// Start launches the worker pool. The context is what event processing runs
// under; keep it alive until Stop has returned or in-flight side effects get
// cut off mid-call.
func (q *Queue) Start(ctx context.Context) {
	log.Info().Int("concurrency", q.Concurrency).Msg("Dispatch queue started")

	for i := 0; i < q.Concurrency; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for j := range q.jobs {
		q.handleSingleEvent(ctx, j)
	}
}

func (q *Queue) handleSingleEvent(ctx context.Context, j job) {
	ctx, span := telemetry.StartDispatchSpan(ctx, j.remote, string(j.event.Action), j.event.DedupeKey)
	defer span.End()

	ctx = logger.EnrichContextWithLogger(ctx)
	q.proc.Process(ctx, j.event)
}

// Enqueue hands one event to the pool. It blocks only while the buffer is
// full; a canceled request context aborts the wait.
func (q *Queue) Enqueue(ctx context.Context, event model.TimesheetEvent) error {
	j := job{event: event, remote: trace.SpanContextFromContext(ctx)}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to enqueue event: %w", ctx.Err())
	}
}

// Stop closes intake and waits for the workers to drain the backlog. The
// HTTP server must stop accepting webhooks before Stop is called.
func (q *Queue) Stop() {
	q.stop.Do(func() { close(q.jobs) })
	q.wg.Wait()
	log.Info().Msg("Dispatch queue drained")
}
