package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
)

const (
	stripeSignatureHeader   = "Stripe-Signature"
	stripeCheckoutCompleted = "checkout.session.completed"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

// Initialize creates a hosted Checkout Session. The reference travels as the
// session's client_reference_id and comes back on the completion webhook.
func (s *Stripe) Initialize(ctx context.Context, c Checkout) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(c.Currency)),
				UnitAmount: stripe.Int64(c.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(c.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(c.CallbackURL),
		ClientReferenceID: stripe.String(c.Reference),
		CustomerEmail:     stripe.String(c.Email),
	}
	params.Context = ctx
	for k, v := range c.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		log.Error().Err(err).Str("reference", c.Reference).Msg("stripe checkout session failed")
		return nil, apperrors.PaymentFailed(err)
	}

	log.Info().Str("reference", c.Reference).Str("session_id", sess.ID).Msg("stripe checkout initialized")
	return &Session{RedirectURL: sess.URL, Reference: c.Reference}, nil
}

func (s *Stripe) ParseWebhook(body []byte, header http.Header) (*Notification, error) {
	event, err := webhook.ConstructEventWithOptions(body, header.Get(stripeSignatureHeader), s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Debug().Err(err).Msg("stripe webhook verification failed")
		return nil, apperrors.InvalidSignature("stripe")
	}

	n := &Notification{Event: string(event.Type)}
	if n.Event != stripeCheckoutCompleted {
		return n, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, apperrors.ValidationError("malformed stripe checkout session")
	}
	n.Reference = sess.ClientReferenceID
	n.Paid = sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid && n.Reference != ""
	return n, nil
}
