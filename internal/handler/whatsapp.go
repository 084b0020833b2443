package handler

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huguadventures/travel-assistant-go/internal/audit"
	"github.com/huguadventures/travel-assistant-go/internal/httputil"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

// InboundProcessor advances one sender's conversation.
type InboundProcessor interface {
	HandleInbound(ctx context.Context, from, body string) error
}

// InboundLimiter reports whether a sender may be processed right now.
type InboundLimiter interface {
	Allow(ctx context.Context, sender string) bool
}

// WhatsAppHandler acknowledges Twilio immediately and processes the message
// in the background.
type WhatsAppHandler struct {
	processor InboundProcessor
	limiter   InboundLimiter
	timeout   time.Duration

	wg sync.WaitGroup
}

func NewWhatsAppHandler(processor InboundProcessor, limiter InboundLimiter, timeout time.Duration) *WhatsAppHandler {
	return &WhatsAppHandler{
		processor: processor,
		limiter:   limiter,
		timeout:   timeout,
	}
}

func (h *WhatsAppHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer httputil.WriteEmptyOK(w)

	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("invalid whatsapp webhook form")
		return
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := r.PostForm.Get("Body")
	if from == "" {
		log.Warn().Msg("whatsapp webhook without sender")
		return
	}

	log.Info().
		Str("from", from).
		Str("body", util.Truncate(body, 50)).
		Msg("received whatsapp message")

	if h.limiter != nil && !h.limiter.Allow(r.Context(), from) {
		audit.Log(r.Context(), audit.Event{Type: audit.EventInboundThrottled, Sender: from})
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer cancel()

		if err := h.processor.HandleInbound(ctx, from, body); err != nil {
			log.Error().Err(err).Str("from", from).Msg("failed to handle whatsapp message")
		}
	}()
}

// Wait blocks until in-flight messages finish.
func (h *WhatsAppHandler) Wait() {
	h.wg.Wait()
}
