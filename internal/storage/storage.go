// Package storage uploads rendered documents and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/huguadventures/travel-assistant-go/internal/retry"
)

const ContentTypePDF = "application/pdf"

type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ItineraryKey is the stable object key for an itinerary's PDF. Edits reuse
// it, so the object is overwritten in place.
func ItineraryKey(id int64) string {
	return fmt.Sprintf("itineraries/itinerary_%d.pdf", id)
}

type retrying struct {
	next   Uploader
	policy retry.Policy
}

// WithRetry bounds each upload attempt by timeout and retries a failed
// attempt once.
func WithRetry(u Uploader, timeout time.Duration) Uploader {
	return &retrying{next: u, policy: retry.Once("storage.upload", timeout)}
}

func (r *retrying) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.next.Upload(ctx, key, data, contentType)
	})
}
