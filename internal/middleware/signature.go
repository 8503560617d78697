package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/audit"
	apperrors "github.com/wabridge/relay-server-go/internal/errors"
	"github.com/wabridge/relay-server-go/internal/httputil"
	"github.com/wabridge/relay-server-go/internal/util"
)

const SignatureHeader = "X-Webhook-Signature"

// SignatureMiddleware checks the hex HMAC-SHA256 of the raw body against
// SignatureHeader. With an empty secret every request passes.
type SignatureMiddleware struct {
	secret  string
	maxSize int64
}

func NewSignatureMiddleware(secret string, maxSize int64) *SignatureMiddleware {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	if secret == "" {
		log.Warn().Msg("webhook signature verification disabled: WEBHOOK_SECRET is not configured")
	}
	return &SignatureMiddleware{secret: secret, maxSize: maxSize}
}

func (m *SignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(SignatureHeader)
		if signature == "" {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventSignatureFailure,
				Details: map[string]interface{}{"reason": "missing"},
			})
			httputil.WriteError(w, apperrors.InvalidSignature())
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, m.maxSize))
		if err != nil {
			log.Error().Err(err).Msg("signature middleware: failed to read body")
			httputil.WriteError(w, apperrors.Internal("Failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if !util.ConstantTimeEqual(util.HmacSHA256(m.secret, string(body)), signature) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventSignatureFailure,
				Details: map[string]interface{}{"reason": "mismatch"},
			})
			httputil.WriteError(w, apperrors.InvalidSignature())
			return
		}

		next.ServeHTTP(w, r)
	})
}
