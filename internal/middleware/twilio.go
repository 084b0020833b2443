package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go/client"

	apperrors "github.com/huguadventures/travel-assistant-go/internal/errors"
	"github.com/huguadventures/travel-assistant-go/internal/httputil"
)

// TwilioSignatureMiddleware verifies X-Twilio-Signature over the public URL
// Twilio posted to and the form fields.
type TwilioSignatureMiddleware struct {
	validator     *client.RequestValidator
	publicBaseURL string
}

// NewTwilioSignatureMiddleware returns a pass-through middleware when
// authToken is empty.
func NewTwilioSignatureMiddleware(authToken, publicBaseURL string) *TwilioSignatureMiddleware {
	m := &TwilioSignatureMiddleware{publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
	if authToken != "" {
		v := client.NewRequestValidator(authToken)
		m.validator = &v
	}
	return m
}

func (m *TwilioSignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.validator == nil {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get("X-Twilio-Signature")
		if signature == "" {
			log.Warn().Msg("twilio signature middleware: missing signature header")
			httputil.WriteError(w, apperrors.InvalidSignature("twilio"))
			return
		}

		if err := r.ParseForm(); err != nil {
			log.Warn().Err(err).Msg("twilio signature middleware: failed to parse form")
			httputil.WriteError(w, apperrors.ValidationError("Invalid form body"))
			return
		}

		params := make(map[string]string, len(r.PostForm))
		for key, values := range r.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}

		url := m.publicBaseURL + r.URL.RequestURI()
		if !m.validator.Validate(url, params, signature) {
			log.Warn().Str("url", url).Msg("twilio signature middleware: invalid signature")
			httputil.WriteError(w, apperrors.InvalidSignature("twilio"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
