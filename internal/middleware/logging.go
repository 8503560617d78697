package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// RequestLogger attaches a request-scoped logger carrying the chi request id
// and writes one access line per request. /health and /metrics are logged at
// debug level.
func RequestLogger(next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = hlog.FromRequest(r).Error()
		case r.URL.Path == "/health" || r.URL.Path == "/metrics":
			event = hlog.FromRequest(r).Debug()
		default:
			event = hlog.FromRequest(r).Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	chain := hlog.NewHandler(log.Logger)(
		requestIDField(
			hlog.RemoteAddrHandler("ip")(
				hlog.UserAgentHandler("userAgent")(
					access(next),
				),
			),
		),
	)
	return chain
}

func requestIDField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			logger := zerolog.Ctx(r.Context())
			logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("requestId", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
