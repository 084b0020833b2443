package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

const (
	paystackSignatureHeader = "x-paystack-signature"
	paystackChargeSuccess   = "charge.success"

	maxResponseBytes = 1 << 20
)

type Paystack struct {
	client    *http.Client
	baseURL   string
	secretKey string
}

func NewPaystack(baseURL, secretKey string, timeout time.Duration) *Paystack {
	return &Paystack{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
	}
}

type paystackInitRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Email       string            `json:"email"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (p *Paystack) Initialize(ctx context.Context, c Checkout) (*Session, error) {
	body, err := json.Marshal(paystackInitRequest{
		Amount:      c.AmountMinor,
		Currency:    c.Currency,
		Email:       c.Email,
		Reference:   c.Reference,
		CallbackURL: c.CallbackURL,
		Metadata:    c.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("reference", c.Reference).Dur("elapsed", elapsed).Msg("paystack initialize error")
		return nil, apperrors.PaymentFailed(err)
	}
	defer resp.Body.Close()

	var out paystackInitResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, apperrors.PaymentFailed(fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !out.Status || out.Data.AuthorizationURL == "" {
		log.Error().
			Str("reference", c.Reference).
			Int("status", resp.StatusCode).
			Str("message", out.Message).
			Dur("elapsed", elapsed).
			Msg("paystack initialize rejected")
		return nil, apperrors.PaymentFailed(fmt.Errorf("paystack init failed: %s", out.Message))
	}

	log.Info().Str("reference", c.Reference).Dur("elapsed", elapsed).Msg("paystack checkout initialized")
	return &Session{RedirectURL: out.Data.AuthorizationURL, Reference: c.Reference}, nil
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// ParseWebhook checks x-paystack-signature, the hex HMAC-SHA512 of the raw
// body keyed by the secret key.
func (p *Paystack) ParseWebhook(body []byte, header http.Header) (*Notification, error) {
	sig := header.Get(paystackSignatureHeader)
	if sig == "" || p.secretKey == "" || !util.ConstantTimeEqual(util.HmacSHA512(p.secretKey, body), strings.ToLower(sig)) {
		return nil, apperrors.InvalidSignature("paystack")
	}

	var ev paystackEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apperrors.ValidationError("malformed paystack event")
	}

	return &Notification{
		Event:     ev.Event,
		Reference: ev.Data.Reference,
		Paid:      ev.Event == paystackChargeSuccess && ev.Data.Status == "success" && ev.Data.Reference != "",
	}, nil
}
