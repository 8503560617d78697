package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventHandoffNotified     EventType = "handoff_notified"
	EventInterventionStarted EventType = "intervention_started"
	EventInterventionEnded   EventType = "intervention_ended"
	EventConversationClosed  EventType = "conversation_closed"
	EventOperatorReply       EventType = "operator_reply"
	EventAuthFailure         EventType = "auth_failure"
	EventSignatureFailure    EventType = "signature_failure"
	EventRateLimitExceed     EventType = "rate_limit_exceeded"
)

type Event struct {
	Type           EventType
	UserID         string
	OperatorID     string
	ConversationID string
	IP             string
	UserAgent      string
	Details        map[string]interface{}
}

func Log(ctx context.Context, event Event) {
	logger := loggerFrom(ctx).With().
		Str("audit", "routing").
		Str("eventType", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.UserID != "" {
		logger = logger.With().Str("userId", event.UserID).Logger()
	}
	if event.OperatorID != "" {
		logger = logger.With().Str("operatorId", event.OperatorID).Logger()
	}
	if event.ConversationID != "" {
		logger = logger.With().Str("conversationId", event.ConversationID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("userAgent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")
}

// loggerFrom prefers the request-scoped logger so audit lines carry the request id.
func loggerFrom(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return log.Logger
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = getClientIP(r)
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
