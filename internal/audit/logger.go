package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventItineraryRequested  EventType = "itinerary.requested"
	EventPaymentInitialized  EventType = "payment.initialized"
	EventPaymentConfirmed    EventType = "payment.confirmed"
	EventPaymentUnmatched    EventType = "payment.unmatched"
	EventItineraryDelivered  EventType = "itinerary.delivered"
	EventDeliveryDegraded    EventType = "itinerary.delivery_degraded"
	EventItineraryEdited     EventType = "itinerary.edited"
	EventItineraryEditDenied EventType = "itinerary.edit_rejected"
	EventInboundThrottled    EventType = "inbound.throttled"
)

type Event struct {
	Type        EventType
	Sender      string
	ItineraryID int64
	Reference   string
	Details     map[string]any
}

// Log writes a business audit line at info level.
func Log(_ context.Context, event Event) {
	logger := log.With().
		Str("audit", "itinerary").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.Sender != "" {
		logger = logger.With().Str("sender", event.Sender).Logger()
	}
	if event.ItineraryID != 0 {
		logger = logger.With().Int64("itinerary_id", event.ItineraryID).Logger()
	}
	if event.Reference != "" {
		logger = logger.With().Str("reference", event.Reference).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	case time.Duration:
		return e.Dur(key, v)
	case error:
		return e.AnErr(key, v)
	default:
		return e.Interface(key, v)
	}
}
