package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/audit"
	"github.com/huguadventures/travel-assistant-go/internal/config"
	"github.com/huguadventures/travel-assistant-go/internal/database"
	"github.com/huguadventures/travel-assistant-go/internal/model"
	"github.com/huguadventures/travel-assistant-go/internal/payment"
	"github.com/huguadventures/travel-assistant-go/internal/queue"
	"github.com/huguadventures/travel-assistant-go/internal/repository"
)

type CheckoutConfig struct {
	AmountMinor int64
	Currency    string
	EmailDomain string
	CallbackURL string
	EditWindow  time.Duration
}

// CheckoutService owns the pending -> paid half of an itinerary request.
type CheckoutService struct {
	tx         database.TxRunner
	repo       repository.ItineraryRequestRepository
	gateway    payment.Gateway
	dispatcher queue.Dispatcher
	cfg        CheckoutConfig
	now        func() time.Time
}

func NewCheckoutService(
	tx database.TxRunner,
	repo repository.ItineraryRequestRepository,
	gateway payment.Gateway,
	dispatcher queue.Dispatcher,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		tx:         tx,
		repo:       repo,
		gateway:    gateway,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// StartCheckout records a pending request for details and opens a payment
// session for it. The row and its reference are written together so a
// webhook can never see a row without its reference.
func (s *CheckoutService) StartCheckout(
	ctx context.Context,
	sender string,
	sess *model.ConversationSession,
	details string,
) (*payment.Session, error) {
	var lastService *string
	if sess.LastService != nil {
		svc := string(*sess.LastService)
		lastService = &svc
	}

	var (
		req       *model.ItineraryRequest
		reference string
	)
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		created, err := repo.Create(ctx, model.CreateItineraryRequestParams{
			SenderIdentity:  sender,
			LastService:     lastService,
			LastDestination: sess.LastDestination,
			RawDetails:      details,
			AmountMinor:     s.cfg.AmountMinor,
			Currency:        s.cfg.Currency,
		})
		if err != nil {
			return fmt.Errorf("create itinerary request: %w", err)
		}

		ref := payment.Reference(created.ID, s.now().UnixMilli())
		if err := repo.SetPaymentReference(ctx, created.ID, ref); err != nil {
			return fmt.Errorf("set payment reference: %w", err)
		}

		req, reference = created, ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventItineraryRequested,
		Sender:      sender,
		ItineraryID: req.ID,
		Reference:   reference,
	})

	initCtx, cancel := context.WithTimeout(ctx, config.PaymentInitTimeout)
	defer cancel()

	session, err := s.gateway.Initialize(initCtx, payment.Checkout{
		Reference:   reference,
		AmountMinor: s.cfg.AmountMinor,
		Currency:    s.cfg.Currency,
		Email:       payment.CustomerEmail(sender, s.cfg.EmailDomain),
		Description: "Custom itinerary: " + req.Destination(defaultDestination),
		CallbackURL: s.cfg.CallbackURL,
		Metadata: map[string]string{
			"whatsapp_number":      sender,
			"itinerary_request_id": strconv.FormatInt(req.ID, 10),
			"purpose":              payment.PurposeCustomItinerary,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize payment: %w", err)
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventPaymentInitialized,
		Sender:      sender,
		ItineraryID: req.ID,
		Reference:   reference,
	})

	return session, nil
}

// ConfirmPayment marks the request carrying reference as paid and schedules
// its delivery. A reference whose request is already paid but was never
// delivered is scheduled again; unknown references are a no-op.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil
	}

	req, err := s.repo.MarkPaid(ctx, reference, s.cfg.EditWindow)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if req == nil {
		return s.confirmAgain(ctx, reference)
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventPaymentConfirmed,
		Sender:      req.SenderIdentity,
		ItineraryID: req.ID,
		Reference:   reference,
	})

	if err := s.dispatcher.DispatchDelivery(ctx, req.ID); err != nil {
		return fmt.Errorf("dispatch delivery: %w", err)
	}
	return nil
}

func (s *CheckoutService) confirmAgain(ctx context.Context, reference string) error {
	existing, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("find by reference: %w", err)
	}
	if existing == nil {
		log.Info().Str("reference", reference).Msg("payment confirmation matched no pending request")
		audit.Log(ctx, audit.Event{Type: audit.EventPaymentUnmatched, Reference: reference})
		return nil
	}
	if !existing.Undelivered() {
		log.Info().Str("reference", reference).Int64("itinerary_id", existing.ID).Msg("payment already confirmed")
		return nil
	}

	log.Warn().Str("reference", reference).Int64("itinerary_id", existing.ID).Msg("paid request never delivered, dispatching again")
	if err := s.dispatcher.DispatchDelivery(ctx, existing.ID); err != nil {
		return fmt.Errorf("dispatch delivery: %w", err)
	}
	return nil
}

// RedeliverUndelivered dispatches every paid request that settled more than
// one pipeline budget ago and still has nothing stored for the sender.
func (s *CheckoutService) RedeliverUndelivered(ctx context.Context) (int64, error) {
	reqs, err := s.repo.FindUndelivered(ctx, config.PipelineTimeout, config.RedeliveryMaxAge)
	if err != nil {
		return 0, fmt.Errorf("find undelivered: %w", err)
	}

	var dispatched int64
	for _, req := range reqs {
		if err := s.dispatcher.DispatchDelivery(ctx, req.ID); err != nil {
			return dispatched, fmt.Errorf("dispatch delivery %d: %w", req.ID, err)
		}
		dispatched++
	}
	return dispatched, nil
}
