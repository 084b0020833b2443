// Package queue runs paid-itinerary work off the webhook request path, either
// on in-process goroutines or through asynq on Redis.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	TypeDeliver = "itinerary:deliver"
	TypeEdit    = "itinerary:edit"
)

// EditJob asks for a paid itinerary to be regenerated from EditText.
type EditJob struct {
	ItineraryID int64  `json:"itineraryId"`
	Sender      string `json:"sender"`
	EditText    string `json:"editText"`
}

// Handler does the work behind each job type.
type Handler interface {
	Deliver(ctx context.Context, itineraryID int64) error
	ApplyEdit(ctx context.Context, job EditJob) error
}

type Dispatcher interface {
	DispatchDelivery(ctx context.Context, itineraryID int64) error
	DispatchEdit(ctx context.Context, job EditJob) error
}

// InlineDispatcher runs jobs on goroutines detached from the caller's
// cancellation, each bounded by timeout. At most one delivery per itinerary
// runs at a time.
type InlineDispatcher struct {
	handler Handler
	timeout time.Duration
	wg      sync.WaitGroup

	mu         sync.Mutex
	delivering map[int64]struct{}
}

func NewInlineDispatcher(handler Handler, timeout time.Duration) *InlineDispatcher {
	return &InlineDispatcher{
		handler:    handler,
		timeout:    timeout,
		delivering: make(map[int64]struct{}),
	}
}

func (d *InlineDispatcher) DispatchDelivery(ctx context.Context, itineraryID int64) error {
	d.mu.Lock()
	if _, busy := d.delivering[itineraryID]; busy {
		d.mu.Unlock()
		log.Info().Int64("itinerary_id", itineraryID).Msg("delivery already running")
		return nil
	}
	d.delivering[itineraryID] = struct{}{}
	d.mu.Unlock()

	d.run(ctx, TypeDeliver, func(ctx context.Context) error {
		defer func() {
			d.mu.Lock()
			delete(d.delivering, itineraryID)
			d.mu.Unlock()
		}()
		return d.handler.Deliver(ctx, itineraryID)
	})
	return nil
}

func (d *InlineDispatcher) DispatchEdit(ctx context.Context, job EditJob) error {
	d.run(ctx, TypeEdit, func(ctx context.Context) error {
		return d.handler.ApplyEdit(ctx, job)
	})
	return nil
}

func (d *InlineDispatcher) run(parent context.Context, jobType string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("job", jobType).Dur("elapsed", time.Since(start)).Msg("job failed")
			return
		}
		log.Debug().Str("job", jobType).Dur("elapsed", time.Since(start)).Msg("job done")
	}()
}

// Wait blocks until every dispatched job has finished.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
