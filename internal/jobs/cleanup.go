package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PendingPurger deletes itinerary requests whose checkout was abandoned.
type PendingPurger interface {
	DeletePendingOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Redeliverer schedules paid requests that never reached the sender.
type Redeliverer interface {
	RedeliverUndelivered(ctx context.Context) (int64, error)
}

type CleanupJob struct {
	requests    PendingPurger
	redeliverer Redeliverer
	pendingTTL  time.Duration
	interval    time.Duration
}

func NewCleanupJob(requests PendingPurger, redeliverer Redeliverer, pendingTTL, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		requests:    requests,
		redeliverer: redeliverer,
		pendingTTL:  pendingTTL,
		interval:    interval,
	}
}

// Run cleans up once immediately and then on every tick until ctx is done.
func (j *CleanupJob) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", j.interval).Dur("pendingTTL", j.pendingTTL).Msg("cleanup job started")
	j.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cleanup job stopped")
			return nil
		case <-ticker.C:
			j.cleanup(ctx)
		}
	}
}

func (j *CleanupJob) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "abandoned itinerary requests", func(ctx context.Context) (int64, error) {
		return j.requests.DeletePendingOlderThan(ctx, j.pendingTTL)
	})

	count, err := j.redeliverer.RedeliverUndelivered(ctx)
	if err != nil {
		log.Error().Err(err).Int64("count", count).Msg("failed to redeliver paid itineraries")
	} else if count > 0 {
		log.Warn().Int64("count", count).Msg("redelivering paid itineraries")
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
