// Package payment initializes hosted checkouts and verifies gateway webhooks.
package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/huguadventures/travel-assistant-go/internal/util"
)

const PurposeCustomItinerary = "custom_itinerary"

// Checkout is one payment to initialize. AmountMinor is in the currency's
// smallest unit.
type Checkout struct {
	Reference   string
	AmountMinor int64
	Currency    string
	Email       string
	Description string
	CallbackURL string
	Metadata    map[string]string
}

// Session is an initialized checkout the customer is redirected to.
type Session struct {
	RedirectURL string
	Reference   string
}

// Notification is a verified webhook. Paid is false for events that do not
// confirm a payment.
type Notification struct {
	Event     string
	Reference string
	Paid      bool
}

type Gateway interface {
	Initialize(ctx context.Context, c Checkout) (*Session, error)
	// ParseWebhook verifies and decodes a webhook body. A bad signature
	// yields an INVALID_SIGNATURE app error.
	ParseWebhook(body []byte, header http.Header) (*Notification, error)
}

// Reference builds the gateway reference for an itinerary request.
func Reference(itineraryID int64, unixMillis int64) string {
	return fmt.Sprintf("ITIN_%d_%d", itineraryID, unixMillis)
}

// CustomerEmail synthesizes a placeholder email from a sender identity's
// digits, since the chat channel never collects one.
func CustomerEmail(senderIdentity, domain string) string {
	digits := util.Digits(senderIdentity)
	if digits == "" {
		digits = "guest"
	}
	return "wa" + digits + "@" + domain
}
