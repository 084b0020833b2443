package model

import (
	"time"
)

type ItineraryRequest struct {
	ID               int64         `db:"id" json:"id"`
	SenderIdentity   string        `db:"sender_identity" json:"senderIdentity"`
	LastService      *string       `db:"last_service" json:"lastService,omitempty"`
	LastDestination  *string       `db:"last_destination" json:"lastDestination,omitempty"`
	RawDetails       string        `db:"raw_details" json:"rawDetails"`
	AmountMinor      int64         `db:"amount_minor" json:"amountMinor"`
	Currency         string        `db:"currency" json:"currency"`
	PaymentStatus    PaymentStatus `db:"payment_status" json:"paymentStatus"`
	PaymentReference *string       `db:"payment_reference" json:"paymentReference,omitempty"`
	ItineraryText    *string       `db:"itinerary_text" json:"-"`
	ItineraryPDFURL  *string       `db:"itinerary_pdf_url" json:"itineraryPdfUrl,omitempty"`
	EditableUntil    *time.Time    `db:"editable_until" json:"editableUntil,omitempty"`
	PaidAt           *time.Time    `db:"paid_at" json:"paidAt,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`

	// EditWindowOpen is computed by the database against NOW() on reads that
	// need it; it is false on rows returned by writes.
	EditWindowOpen bool `db:"edit_window_open" json:"editWindowOpen"`
}

// Destination returns the request's destination or fallback when none was captured.
func (r *ItineraryRequest) Destination(fallback string) string {
	if r.LastDestination != nil && *r.LastDestination != "" {
		return *r.LastDestination
	}
	return fallback
}

// Text returns the stored itinerary body or "".
func (r *ItineraryRequest) Text() string {
	if r.ItineraryText == nil {
		return ""
	}
	return *r.ItineraryText
}

// PDFURL returns the stored PDF URL or "".
func (r *ItineraryRequest) PDFURL() string {
	if r.ItineraryPDFURL == nil {
		return ""
	}
	return *r.ItineraryPDFURL
}

// HasContent reports whether anything can be shown to the sender.
func (r *ItineraryRequest) HasContent() bool {
	return r.Text() != "" || r.PDFURL() != ""
}

// Undelivered reports whether the request was paid for but nothing has
// been stored for the sender yet.
func (r *ItineraryRequest) Undelivered() bool {
	return r.PaymentStatus == PaymentStatusPaid && !r.HasContent()
}

type CreateItineraryRequestParams struct {
	SenderIdentity  string
	LastService     *string
	LastDestination *string
	RawDetails      string
	AmountMinor     int64
	Currency        string
}
