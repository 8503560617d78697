package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/metrics"
	"github.com/wabridge/relay-server-go/internal/middleware"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/service"
)

type MessageRouter interface {
	FindInstance(ctx context.Context, name string) (*model.Instance, error)
	Route(ctx context.Context, instance *model.Instance, msg *model.InboundMessage) service.Outcome
	UpdateConnectionState(ctx context.Context, instanceName, state string) (bool, error)
}

// GatewayWebhookHandler receives WhatsApp gateway events. It always answers
// 200 so the gateway never disables the webhook; failures are reported in the
// body and the logs.
type GatewayWebhookHandler struct {
	router  MessageRouter
	maxBody int64
	now     func() time.Time
}

func NewGatewayWebhookHandler(router MessageRouter) *GatewayWebhookHandler {
	return &GatewayWebhookHandler{
		router:  router,
		maxBody: middleware.DefaultMaxBodySize,
		now:     time.Now,
	}
}

func (h *GatewayWebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	instanceName := chi.URLParam(r, "instanceName")
	logger := log.With().Str("instance", instanceName).Logger()

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("gateway webhook panicked")
			writeJSON(w, http.StatusOK, ackError("internal error"))
		}
	}()

	var req GatewayWebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("invalid gateway webhook payload")
		writeJSON(w, http.StatusOK, ackError("invalid payload"))
		return
	}

	kind := req.Kind()
	switch kind {
	case EventMessagesUpsert:
		// Envelopes already claimed must finish persisting after the gateway hangs up.
		writeJSON(w, http.StatusOK, h.handleMessages(context.WithoutCancel(r.Context()), instanceName, req.Data.Messages))

	case EventConnectionUpdate:
		processed, err := h.router.UpdateConnectionState(r.Context(), instanceName, req.Data.ConnectionState())
		if err != nil {
			logger.Error().Err(err).Msg("failed to update connection state")
			writeJSON(w, http.StatusOK, ackError("internal error"))
			return
		}
		if !processed {
			logger.Warn().Msg("connection update for unknown instance")
		}
		writeJSON(w, http.StatusOK, ack(processed))

	default:
		logger.Debug().Str("event", req.Event).Msg("unrecognized gateway event ignored")
		writeJSON(w, http.StatusOK, ack(false))
	}
}

func (h *GatewayWebhookHandler) handleMessages(ctx context.Context, instanceName string, envelopes MessageEnvelopes) WebhookResponse {
	logger := log.With().Str("instance", instanceName).Logger()

	instance, err := h.router.FindInstance(ctx, instanceName)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load instance")
		return ackError("internal error")
	}
	if instance == nil {
		logger.Warn().Msg("webhook for unknown instance")
		metrics.EnvelopesTotal.WithLabelValues(service.OutcomeSkip.String(), service.ReasonUnknownInstance).Add(float64(len(envelopes)))
		return ack(false)
	}

	var ok, skipped, failed int
	now := h.now()
	for i := range envelopes {
		msg, reason := envelopes[i].Normalize(instanceName, now)
		if msg == nil {
			skipped++
			metrics.EnvelopesTotal.WithLabelValues(service.OutcomeSkip.String(), reason).Inc()
			continue
		}

		out := h.router.Route(ctx, instance, msg)
		switch out.Kind {
		case service.OutcomeOK:
			ok++
		case service.OutcomeSkip:
			skipped++
		case service.OutcomeFailed:
			failed++
			logger.Error().
				Err(out.Err).
				Str("messageId", msg.MessageID).
				Str("reason", out.Reason).
				Msg("message processing failed")
		}
	}

	logger.Info().
		Int("envelopes", len(envelopes)).
		Int("ok", ok).
		Int("skipped", skipped).
		Int("failed", failed).
		Msg("gateway webhook processed")

	if failed > 0 {
		processed := ok > 0
		return WebhookResponse{
			Success:   false,
			Processed: &processed,
			Error:     fmt.Sprintf("%d of %d messages failed", failed, len(envelopes)),
		}
	}
	return ack(ok > 0)
}
