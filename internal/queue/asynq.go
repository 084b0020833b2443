package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

const taskRetention = 24 * time.Hour

type deliverPayload struct {
	ItineraryID int64 `json:"itineraryId"`
}

// AsynqDispatcher enqueues jobs on Redis. Jobs are not retried: the pipeline
// already degrades on failure and a rerun would message the sender twice.
type AsynqDispatcher struct {
	client *asynq.Client
	dedupe time.Duration
}

// NewAsynqDispatcher collapses deliveries of the same itinerary enqueued
// within dedupe of each other. A delivery that finishes releases its slot
// early.
func NewAsynqDispatcher(opt asynq.RedisConnOpt, dedupe time.Duration) *AsynqDispatcher {
	return &AsynqDispatcher{client: asynq.NewClient(opt), dedupe: dedupe}
}

func (d *AsynqDispatcher) Close() error {
	return d.client.Close()
}

// DispatchDelivery enqueues a delivery unless one for the same itinerary is
// still pending or running. A failed delivery can be dispatched again once
// the dedupe period has passed.
func (d *AsynqDispatcher) DispatchDelivery(ctx context.Context, itineraryID int64) error {
	task, err := deliveryTask(itineraryID)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.Unique(d.dedupe),
		asynq.MaxRetry(0),
		asynq.Retention(taskRetention),
	)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		log.Info().Int64("itinerary_id", itineraryID).Msg("delivery already enqueued")
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue delivery: %w", err)
	}

	log.Debug().Int64("itinerary_id", itineraryID).Str("task_id", info.ID).Msg("delivery enqueued")
	return nil
}

func deliveryTask(itineraryID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(deliverPayload{ItineraryID: itineraryID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeDeliver, payload), nil
}

func (d *AsynqDispatcher) DispatchEdit(ctx context.Context, job EditJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(TypeEdit, payload)

	info, err := d.client.EnqueueContext(ctx, task,
		asynq.TaskID("edit:"+uuid.NewString()),
		asynq.MaxRetry(0),
		asynq.Retention(taskRetention),
	)
	if err != nil {
		return fmt.Errorf("enqueue edit: %w", err)
	}

	log.Debug().Int64("itinerary_id", job.ItineraryID).Str("task_id", info.ID).Msg("edit enqueued")
	return nil
}

// Worker consumes itinerary jobs.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, handler Handler) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      asynqLogger{},
	})
	return &Worker{srv: srv, mux: NewServeMux(handler)}
}

// NewServeMux routes both job types to handler.
func NewServeMux(handler Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDeliver, handleDeliver(handler))
	mux.HandleFunc(TypeEdit, handleEdit(handler))
	return mux
}

// Run processes jobs until ctx is cancelled, then drains in-flight work.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.srv.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	log.Info().Msg("queue worker started")

	<-ctx.Done()
	w.srv.Shutdown()
	log.Info().Msg("queue worker stopped")
	return nil
}

func handleDeliver(handler Handler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p deliverPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid deliver payload: %v: %w", err, asynq.SkipRetry)
		}
		return handler.Deliver(ctx, p.ItineraryID)
	}
}

func handleEdit(handler Handler) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var job EditJob
		if err := json.Unmarshal(task.Payload(), &job); err != nil {
			return fmt.Errorf("invalid edit payload: %v: %w", err, asynq.SkipRetry)
		}
		return handler.ApplyEdit(ctx, job)
	}
}

// asynqLogger routes asynq's own logging through zerolog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { log.Debug().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { log.Info().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { log.Warn().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { log.Error().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { log.Fatal().Str("component", "asynq").Msg(fmt.Sprint(args...)) }
