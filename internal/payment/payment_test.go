package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

func TestReference(t *testing.T) {
	assert.Equal(t, "ITIN_12_1700000000000", Reference(12, 1700000000000))
}

func TestCustomerEmail(t *testing.T) {
	assert.Equal(t, "wa254712345678@huguadventures.com", CustomerEmail("whatsapp:+254712345678", "huguadventures.com"))
	assert.Equal(t, "waguest@example.com", CustomerEmail("whatsapp:", "example.com"))
}

func TestPaystackInitialize(t *testing.T) {
	t.Run("posts checkout and returns redirect", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.paystack.com/abc","reference":"ITIN_1_2"}}`))
		}))
		defer srv.Close()

		p := NewPaystack(srv.URL+"/", "sk_test", 5*time.Second)
		sess, err := p.Initialize(context.Background(), Checkout{
			Reference:   "ITIN_1_2",
			AmountMinor: 60000,
			Currency:    "KES",
			Email:       "wa254@huguadventures.com",
			CallbackURL: "https://example.com/payments/thanks",
			Metadata:    map[string]string{"purpose": PurposeCustomItinerary},
		})

		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc", sess.RedirectURL)
		assert.Equal(t, "ITIN_1_2", sess.Reference)
		assert.Equal(t, float64(60000), got["amount"])
		assert.Equal(t, "KES", got["currency"])
		assert.Equal(t, "ITIN_1_2", got["reference"])
		assert.Equal(t, "https://example.com/payments/thanks", got["callback_url"])
		assert.Equal(t, map[string]any{"purpose": "custom_itinerary"}, got["metadata"])
	})

	t.Run("rejected init is a payment failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
		}))
		defer srv.Close()

		_, err := NewPaystack(srv.URL, "bad", 5*time.Second).Initialize(context.Background(), Checkout{Reference: "r"})

		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePaymentFailed))
	})
}

func TestPaystackParseWebhook(t *testing.T) {
	p := NewPaystack("https://api.paystack.co", "sk_test", time.Second)
	signed := func(body string) http.Header {
		h := http.Header{}
		h.Set("x-paystack-signature", util.HmacSHA512("sk_test", []byte(body)))
		return h
	}

	t.Run("charge success", func(t *testing.T) {
		body := `{"event":"charge.success","data":{"status":"success","reference":"ITIN_3_9"}}`

		n, err := p.ParseWebhook([]byte(body), signed(body))

		require.NoError(t, err)
		assert.True(t, n.Paid)
		assert.Equal(t, "ITIN_3_9", n.Reference)
	})

	t.Run("other events are not payments", func(t *testing.T) {
		body := `{"event":"transfer.success","data":{"status":"success","reference":"x"}}`

		n, err := p.ParseWebhook([]byte(body), signed(body))

		require.NoError(t, err)
		assert.False(t, n.Paid)
	})

	t.Run("failed charge is not a payment", func(t *testing.T) {
		body := `{"event":"charge.success","data":{"status":"failed","reference":"x"}}`

		n, err := p.ParseWebhook([]byte(body), signed(body))

		require.NoError(t, err)
		assert.False(t, n.Paid)
	})

	t.Run("bad signature", func(t *testing.T) {
		body := `{"event":"charge.success","data":{"status":"success","reference":"x"}}`
		h := http.Header{}
		h.Set("x-paystack-signature", "deadbeef")

		_, err := p.ParseWebhook([]byte(body), h)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidSignature))
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := p.ParseWebhook([]byte(`{}`), http.Header{})

		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidSignature))
	})
}

func TestStripeParseWebhook(t *testing.T) {
	const secret = "whsec_test"
	s := NewStripe("sk_test", secret)
	signed := func(body string) http.Header {
		p := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(body), Secret: secret})
		h := http.Header{}
		h.Set("Stripe-Signature", p.Header)
		return h
	}

	t.Run("paid checkout", func(t *testing.T) {
		body := `{"id":"evt_1","object":"event","type":"checkout.session.completed",` +
			`"data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"ITIN_5_1","payment_status":"paid"}}}`

		n, err := s.ParseWebhook([]byte(body), signed(body))

		require.NoError(t, err)
		assert.True(t, n.Paid)
		assert.Equal(t, "ITIN_5_1", n.Reference)
	})

	t.Run("unpaid checkout", func(t *testing.T) {
		body := `{"id":"evt_2","object":"event","type":"checkout.session.completed",` +
			`"data":{"object":{"id":"cs_2","object":"checkout.session","client_reference_id":"ITIN_5_1","payment_status":"unpaid"}}}`

		n, err := s.ParseWebhook([]byte(body), signed(body))

		require.NoError(t, err)
		assert.False(t, n.Paid)
	})

	t.Run("other event", func(t *testing.T) {
		body := `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{}}}`

		n, err := s.ParseWebhook([]byte(body), signed(body))

		require.NoError(t, err)
		assert.False(t, n.Paid)
		assert.Equal(t, "customer.created", n.Event)
	})

	t.Run("bad signature", func(t *testing.T) {
		h := http.Header{}
		h.Set("Stripe-Signature", "t=1,v1=deadbeef")

		_, err := s.ParseWebhook([]byte(`{}`), h)

		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidSignature))
	})
}
