package handler

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/config"
	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
	"github.com/huguadventures/travel-assistant-go/internal/httputil"
	"github.com/huguadventures/travel-assistant-go/internal/payment"
)

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, reference string) error
}

// PaymentHandler receives gateway webhooks. Every outcome answers 200.
type PaymentHandler struct {
	gateway   payment.Gateway
	confirmer PaymentConfirmer
	brand     string
}

func NewPaymentHandler(gateway payment.Gateway, confirmer PaymentConfirmer, brand string) *PaymentHandler {
	return &PaymentHandler{
		gateway:   gateway,
		confirmer: confirmer,
		brand:     brand,
	}
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer httputil.WriteEmptyOK(w)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxWebhookBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("failed to read payment webhook body")
		return
	}

	notification, err := h.gateway.ParseWebhook(body, r.Header)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeInvalidSignature) {
			log.Warn().Msg("payment webhook with invalid signature ignored")
		} else {
			log.Warn().Err(err).Msg("unreadable payment webhook ignored")
		}
		return
	}

	if !notification.Paid {
		log.Debug().Str("event", notification.Event).Msg("payment webhook event ignored")
		return
	}

	if err := h.confirmer.ConfirmPayment(r.Context(), notification.Reference); err != nil {
		log.Error().Err(err).Str("reference", notification.Reference).Msg("failed to confirm payment")
	}
}

// Thanks is the page the gateway redirects the customer to after checkout.
func (h *PaymentHandler) Thanks(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, thanksPage, html.EscapeString(h.brand))
}

const thanksPage = `<!doctype html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">
<title>Payment received</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 3em 1em;">
<h1>Thank you! ✅</h1>
<p>Your payment was received. %s is preparing your itinerary and will send it to you on WhatsApp shortly.</p>
<p>You can close this page.</p>
</body></html>
`
