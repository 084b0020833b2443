// Package messaging sends WhatsApp messages through Twilio.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"

	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

const whatsappPrefix = "whatsapp:"

type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendMedia(ctx context.Context, to, body, mediaURL string) error
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Twilio struct {
	api     messageCreator
	from    string
	limiter *rate.Limiter
}

// NewTwilio builds a sender for the given WhatsApp-enabled number, throttled
// to perSecond outbound messages.
func NewTwilio(accountSID, authToken, from string, perSecond float64) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilio(client.Api, from, perSecond)
}

func newTwilio(api messageCreator, from string, perSecond float64) *Twilio {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Twilio{
		api:     api,
		from:    WhatsAppAddress(from),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// WhatsAppAddress prefixes a bare number with the whatsapp: channel.
func WhatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if number == "" || strings.HasPrefix(number, whatsappPrefix) {
		return number
	}
	return whatsappPrefix + number
}

func (t *Twilio) SendText(ctx context.Context, to, body string) error {
	return t.send(ctx, to, body, "")
}

func (t *Twilio) SendMedia(ctx context.Context, to, body, mediaURL string) error {
	return t.send(ctx, to, body, mediaURL)
}

func (t *Twilio) send(ctx context.Context, to, body, mediaURL string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttled: %w", err)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(WhatsAppAddress(to))
	params.SetFrom(t.from)
	params.SetBody(body)
	if mediaURL != "" {
		params.SetMediaUrl([]string{mediaURL})
	}

	start := time.Now()
	msg, err := t.api.CreateMessage(params)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().
			Err(err).
			Str("to", to).
			Bool("media", mediaURL != "").
			Dur("elapsed", elapsed).
			Msg("twilio send failed")
		return apperrors.External("twilio", err)
	}

	ev := log.Debug().
		Str("to", to).
		Bool("media", mediaURL != "").
		Str("body", util.Truncate(body, 80)).
		Dur("elapsed", elapsed)
	if msg != nil && msg.Sid != nil {
		ev = ev.Str("sid", *msg.Sid)
	}
	ev.Msg("message sent")
	return nil
}
