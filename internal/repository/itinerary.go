package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/huguadventures/travel-assistant-go/internal/database"
	"github.com/huguadventures/travel-assistant-go/internal/model"
)

type ItineraryRequestRepository interface {
	Create(ctx context.Context, params model.CreateItineraryRequestParams) (*model.ItineraryRequest, error)
	SetPaymentReference(ctx context.Context, id int64, reference string) error
	// MarkPaid moves a pending request to paid in one conditional UPDATE and
	// returns the updated row, or nil when no pending row carries reference.
	MarkPaid(ctx context.Context, reference string, editWindow time.Duration) (*model.ItineraryRequest, error)
	FindByID(ctx context.Context, id int64) (*model.ItineraryRequest, error)
	FindByReference(ctx context.Context, reference string) (*model.ItineraryRequest, error)
	FindLatestPaid(ctx context.Context, sender string) (*model.ItineraryRequest, error)
	// FindUndelivered lists paid requests without text or PDF whose payment
	// settled between maxAge and minAge ago.
	FindUndelivered(ctx context.Context, minAge, maxAge time.Duration) ([]model.ItineraryRequest, error)
	SaveText(ctx context.Context, id int64, text string) error
	SavePDFURL(ctx context.Context, id int64, url string) error
	// ApplyEdit overwrites text and details only while the edit window is
	// open at the database clock, and clears the PDF that described the old
	// text. It reports whether a row was changed.
	ApplyEdit(ctx context.Context, id int64, text, rawDetails string) (bool, error)
	DeletePendingOlderThan(ctx context.Context, age time.Duration) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) ItineraryRequestRepository
}

type itineraryRequestRepo struct {
	db database.DBTX
}

func NewItineraryRequestRepository(db *sqlx.DB) ItineraryRequestRepository {
	return &itineraryRequestRepo{db: db}
}

func (r *itineraryRequestRepo) WithTx(tx *sqlx.Tx) ItineraryRequestRepository {
	return &itineraryRequestRepo{db: tx}
}

func (r *itineraryRequestRepo) Create(ctx context.Context, params model.CreateItineraryRequestParams) (*model.ItineraryRequest, error) {
	var req model.ItineraryRequest
	err := r.db.GetContext(ctx, &req, `
		INSERT INTO itinerary_requests
			(sender_identity, last_service, last_destination, raw_details, amount_minor, currency, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING *
	`, params.SenderIdentity, params.LastService, params.LastDestination,
		params.RawDetails, params.AmountMinor, params.Currency)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *itineraryRequestRepo) SetPaymentReference(ctx context.Context, id int64, reference string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE itinerary_requests SET payment_reference = $2 WHERE id = $1
	`, id, reference)
	return err
}

func (r *itineraryRequestRepo) MarkPaid(ctx context.Context, reference string, editWindow time.Duration) (*model.ItineraryRequest, error) {
	var req model.ItineraryRequest
	err := r.db.GetContext(ctx, &req, `
		UPDATE itinerary_requests SET
			payment_status = 'paid',
			paid_at = NOW(),
			editable_until = NOW() + make_interval(secs => $2)
		WHERE payment_reference = $1 AND payment_status = 'pending'
		RETURNING *
	`, reference, editWindow.Seconds())
	return HandleNotFound(&req, err)
}

func (r *itineraryRequestRepo) FindByID(ctx context.Context, id int64) (*model.ItineraryRequest, error) {
	var req model.ItineraryRequest
	err := r.db.GetContext(ctx, &req, `
		SELECT *, (editable_until IS NOT NULL AND NOW() <= editable_until) AS edit_window_open
		FROM itinerary_requests WHERE id = $1
	`, id)
	return HandleNotFound(&req, err)
}

func (r *itineraryRequestRepo) FindByReference(ctx context.Context, reference string) (*model.ItineraryRequest, error) {
	var req model.ItineraryRequest
	err := r.db.GetContext(ctx, &req, `
		SELECT *, (editable_until IS NOT NULL AND NOW() <= editable_until) AS edit_window_open
		FROM itinerary_requests WHERE payment_reference = $1
	`, reference)
	return HandleNotFound(&req, err)
}

func (r *itineraryRequestRepo) FindLatestPaid(ctx context.Context, sender string) (*model.ItineraryRequest, error) {
	var req model.ItineraryRequest
	err := r.db.GetContext(ctx, &req, `
		SELECT *, (editable_until IS NOT NULL AND NOW() <= editable_until) AS edit_window_open
		FROM itinerary_requests
		WHERE sender_identity = $1 AND payment_status = 'paid'
		ORDER BY created_at DESC
		LIMIT 1
	`, sender)
	return HandleNotFound(&req, err)
}

func (r *itineraryRequestRepo) FindUndelivered(ctx context.Context, minAge, maxAge time.Duration) ([]model.ItineraryRequest, error) {
	var reqs []model.ItineraryRequest
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT *, (editable_until IS NOT NULL AND NOW() <= editable_until) AS edit_window_open
		FROM itinerary_requests
		WHERE payment_status = 'paid'
			AND COALESCE(itinerary_text, '') = ''
			AND COALESCE(itinerary_pdf_url, '') = ''
			AND paid_at <= NOW() - make_interval(secs => $1)
			AND paid_at > NOW() - make_interval(secs => $2)
		ORDER BY paid_at
	`, minAge.Seconds(), maxAge.Seconds())
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *itineraryRequestRepo) SaveText(ctx context.Context, id int64, text string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE itinerary_requests SET itinerary_text = $2 WHERE id = $1
	`, id, text)
	return err
}

func (r *itineraryRequestRepo) SavePDFURL(ctx context.Context, id int64, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE itinerary_requests SET itinerary_pdf_url = $2 WHERE id = $1
	`, id, url)
	return err
}

func (r *itineraryRequestRepo) ApplyEdit(ctx context.Context, id int64, text, rawDetails string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE itinerary_requests SET
			itinerary_text = $2,
			raw_details = $3,
			itinerary_pdf_url = NULL
		WHERE id = $1
			AND payment_status = 'paid'
			AND editable_until IS NOT NULL
			AND NOW() <= editable_until
	`, id, text, rawDetails)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *itineraryRequestRepo) DeletePendingOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM itinerary_requests
		WHERE payment_status = 'pending'
			AND created_at < NOW() - make_interval(secs => $1)
	`, age.Seconds())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
