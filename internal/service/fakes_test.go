package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/huguadventures/travel-assistant-go/internal/affiliate"
	"github.com/huguadventures/travel-assistant-go/internal/database"
	"github.com/huguadventures/travel-assistant-go/internal/itinerary"
	"github.com/huguadventures/travel-assistant-go/internal/model"
	"github.com/huguadventures/travel-assistant-go/internal/payment"
	"github.com/huguadventures/travel-assistant-go/internal/queue"
	"github.com/huguadventures/travel-assistant-go/internal/repository"
)

var testMessages = Messages{
	Brand:      "Hugu Adventures",
	PriceLabel: "$5",
	EditWindow: 72 * time.Hour,
	Location:   time.UTC,
}

// fakeRepo is an in-memory ItineraryRequestRepository that evaluates the
// edit window against the wall clock the way the database does.
type fakeRepo struct {
	mu     sync.Mutex
	rows   map[int64]*model.ItineraryRequest
	nextID int64

	failSave error
}

var _ repository.ItineraryRequestRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[int64]*model.ItineraryRequest)}
}

func (r *fakeRepo) WithTx(*sqlx.Tx) repository.ItineraryRequestRepository { return r }

func (r *fakeRepo) Create(_ context.Context, p model.CreateItineraryRequestParams) (*model.ItineraryRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row := &model.ItineraryRequest{
		ID:              r.nextID,
		SenderIdentity:  p.SenderIdentity,
		LastService:     p.LastService,
		LastDestination: p.LastDestination,
		RawDetails:      p.RawDetails,
		AmountMinor:     p.AmountMinor,
		Currency:        p.Currency,
		PaymentStatus:   model.PaymentStatusPending,
		CreatedAt:       time.Now(),
	}
	r.rows[row.ID] = row
	return r.snapshot(row), nil
}

func (r *fakeRepo) SetPaymentReference(_ context.Context, id int64, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[id].PaymentReference = &reference
	return nil
}

func (r *fakeRepo) MarkPaid(_ context.Context, reference string, window time.Duration) (*model.ItineraryRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PaymentReference != nil && *row.PaymentReference == reference &&
			row.PaymentStatus == model.PaymentStatusPending {
			now := time.Now()
			until := now.Add(window)
			row.PaymentStatus = model.PaymentStatusPaid
			row.PaidAt = &now
			row.EditableUntil = &until
			out := r.snapshot(row)
			out.EditWindowOpen = false
			return out, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id int64) (*model.ItineraryRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return r.snapshot(row), nil
}

func (r *fakeRepo) FindByReference(_ context.Context, reference string) (*model.ItineraryRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.PaymentReference != nil && *row.PaymentReference == reference {
			return r.snapshot(row), nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) FindLatestPaid(_ context.Context, sender string) (*model.ItineraryRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.ItineraryRequest
	for _, row := range r.rows {
		if row.SenderIdentity != sender || row.PaymentStatus != model.PaymentStatusPaid {
			continue
		}
		if latest == nil || row.ID > latest.ID {
			latest = row
		}
	}
	if latest == nil {
		return nil, nil
	}
	return r.snapshot(latest), nil
}

func (r *fakeRepo) FindUndelivered(_ context.Context, minAge, maxAge time.Duration) ([]model.ItineraryRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ItineraryRequest
	for _, row := range r.rows {
		if !row.Undelivered() || row.PaidAt == nil {
			continue
		}
		if age := time.Since(*row.PaidAt); age >= minAge && age < maxAge {
			out = append(out, *r.snapshot(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(*out[j].PaidAt) })
	return out, nil
}

func (r *fakeRepo) SaveText(_ context.Context, id int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.rows[id].ItineraryText = &text
	return nil
}

func (r *fakeRepo) SavePDFURL(_ context.Context, id int64, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[id].ItineraryPDFURL = &url
	return nil
}

func (r *fakeRepo) ApplyEdit(_ context.Context, id int64, text, rawDetails string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || !windowOpen(row) {
		return false, nil
	}
	row.ItineraryText = &text
	row.RawDetails = rawDetails
	row.ItineraryPDFURL = nil
	return true, nil
}

func (r *fakeRepo) DeletePendingOlderThan(_ context.Context, age time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.PaymentStatus == model.PaymentStatusPending && time.Since(row.CreatedAt) > age {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

// seedPaid stores a paid row whose edit window ends at until.
func (r *fakeRepo) seedPaid(sender, dest, text string, until time.Time) *model.ItineraryRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	paidAt := until.Add(-72 * time.Hour)
	row := &model.ItineraryRequest{
		ID:              r.nextID,
		SenderIdentity:  sender,
		LastDestination: &dest,
		RawDetails:      "Destination(s): " + dest + "\nNumber of days: 3",
		PaymentStatus:   model.PaymentStatusPaid,
		ItineraryText:   &text,
		EditableUntil:   &until,
		PaidAt:          &paidAt,
		CreatedAt:       paidAt,
	}
	r.rows[row.ID] = row
	return r.snapshot(row)
}

// seedUndelivered stores a paid row with nothing delivered, paid ago.
func (r *fakeRepo) seedUndelivered(sender, dest string, ago time.Duration) *model.ItineraryRequest {
	paidAt := time.Now().Add(-ago)
	row := r.seedPaid(sender, dest, "", paidAt.Add(72*time.Hour))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID].ItineraryText = nil
	reference := fmt.Sprintf("ITIN_%d_%d", row.ID, paidAt.UnixMilli())
	r.rows[row.ID].PaymentReference = &reference
	return r.snapshot(r.rows[row.ID])
}

func (r *fakeRepo) row(id int64) *model.ItineraryRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := *r.rows[id]
	return &out
}

func (r *fakeRepo) pending() []model.ItineraryRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ItineraryRequest
	for _, row := range r.rows {
		if row.PaymentStatus == model.PaymentStatusPending {
			out = append(out, *row)
		}
	}
	return out
}

func (r *fakeRepo) snapshot(row *model.ItineraryRequest) *model.ItineraryRequest {
	out := *row
	out.EditWindowOpen = windowOpen(row)
	return &out
}

func windowOpen(row *model.ItineraryRequest) bool {
	return row.PaymentStatus == model.PaymentStatusPaid &&
		row.EditableUntil != nil && !time.Now().After(*row.EditableUntil)
}

type fakeTx struct {
	calls int
}

var _ database.TxRunner = (*fakeTx)(nil)

func (f *fakeTx) WithTx(_ context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

type sentMessage struct {
	To       string
	Body     string
	MediaURL string
}

type fakeSender struct {
	mu        sync.Mutex
	sent      []sentMessage
	failMedia error
}

func (f *fakeSender) SendText(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return nil
}

func (f *fakeSender) SendMedia(_ context.Context, to, body, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMedia != nil {
		return f.failMedia
	}
	f.sent = append(f.sent, sentMessage{To: to, Body: body, MediaURL: mediaURL})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeSender) last() sentMessage {
	msgs := f.messages()
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

type fakeDispatcher struct {
	mu         sync.Mutex
	deliveries []int64
	edits      []queue.EditJob
	err        error
}

func (d *fakeDispatcher) DispatchDelivery(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.deliveries = append(d.deliveries, id)
	return nil
}

func (d *fakeDispatcher) DispatchEdit(_ context.Context, job queue.EditJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.edits = append(d.edits, job)
	return nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Initialize(ctx context.Context, c payment.Checkout) (*payment.Session, error) {
	args := m.Called(ctx, c)
	if s, ok := args.Get(0).(*payment.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) ParseWebhook([]byte, http.Header) (*payment.Notification, error) {
	return nil, errors.New("not used")
}

type stubAssistant struct{}

func (stubAssistant) Answer(_ context.Context, q string) string  { return "answer: " + q }
func (stubAssistant) Inspire(_ context.Context, p string) string { return "ideas: " + p }

type stubWriter struct {
	fallback bool
}

func (w stubWriter) Draft(_ context.Context, req *model.ItineraryRequest) itinerary.Composition {
	return itinerary.Composition{
		Text:     "**Trip to " + req.Destination(defaultDestination) + "**\n*Day 1: Nairobi*\n• Morning: arrive",
		Cities:   []string{"Nairobi"},
		Fallback: w.fallback,
	}
}

func (w stubWriter) Revise(_ context.Context, _ *model.ItineraryRequest, editText string) itinerary.Composition {
	return itinerary.Composition{Text: "Revised: " + editText, Cities: []string{"Nairobi"}}
}

func (stubWriter) Links() affiliate.Links { return affiliate.Links{} }

type stubRenderer struct {
	err    error
	titles []string
}

func (r *stubRenderer) Render(title, text string, _ []string, _ affiliate.Links) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.titles = append(r.titles, title)
	return []byte("%PDF-" + text), nil
}

type stubUploader struct {
	err  error
	keys []string
}

func (u *stubUploader) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.keys = append(u.keys, key)
	return "https://cdn.example.com/" + key, nil
}
