package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/metrics"
	"github.com/wabridge/relay-server-go/internal/middleware"
	"github.com/wabridge/relay-server-go/internal/model"
)

type InboxRelay interface {
	RelayAgentReply(ctx context.Context, instanceName string, inboxConversationID int64, text string) (bool, error)
	HandleConversationStatus(ctx context.Context, instanceName string, inboxConversationID int64, status model.InboxConversationStatus) error
}

// InboxWebhookHandler relays agent replies written in the engagement inbox
// back to the counterpart. Only public outgoing messages are relayed.
type InboxWebhookHandler struct {
	relay   InboxRelay
	maxBody int64
}

func NewInboxWebhookHandler(relay InboxRelay) *InboxWebhookHandler {
	return &InboxWebhookHandler{relay: relay, maxBody: middleware.DefaultMaxBodySize}
}

func (h *InboxWebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	instanceName := chi.URLParam(r, "instanceName")
	logger := log.With().Str("instance", instanceName).Logger()

	var req InboxWebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		logger.Warn().Err(err).Msg("invalid inbox webhook payload")
		metrics.InboxRelayTotal.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusOK, ackError("invalid payload"))
		return
	}

	switch req.Kind() {
	case InboxEventMessageCreated:
		writeJSON(w, http.StatusOK, h.relayReply(r.Context(), instanceName, req.Reply()))

	case InboxEventConversationStatusChanged:
		status := req.ConversationStatus()
		if req.Conversation.ID == 0 || status == "" {
			metrics.InboxRelayTotal.WithLabelValues("ignored").Inc()
			writeJSON(w, http.StatusOK, ack(false))
			return
		}
		if err := h.relay.HandleConversationStatus(r.Context(), instanceName, req.Conversation.ID, status); err != nil {
			logger.Error().Err(err).Int64("inboxConversationId", req.Conversation.ID).Msg("failed to record inbox status")
			metrics.InboxRelayTotal.WithLabelValues("failed").Inc()
			writeJSON(w, http.StatusOK, ackError("internal error"))
			return
		}
		metrics.InboxRelayTotal.WithLabelValues("status_updated").Inc()
		writeJSON(w, http.StatusOK, ack(true))

	default:
		logger.Debug().Str("event", req.Event).Msg("unrecognized inbox event ignored")
		metrics.InboxRelayTotal.WithLabelValues("ignored").Inc()
		writeJSON(w, http.StatusOK, ack(false))
	}
}

func (h *InboxWebhookHandler) relayReply(ctx context.Context, instanceName string, reply InboxReply) WebhookResponse {
	logger := log.With().
		Str("instance", instanceName).
		Int64("inboxConversationId", reply.ConversationID).
		Logger()

	var skip string
	switch {
	case reply.MessageType == InboxMessageIncoming:
		skip = "skipped_incoming"
	case reply.Private:
		skip = "skipped_private"
	case reply.MessageType != InboxMessageOutgoing:
		skip = "skipped_type"
	case reply.Content == "":
		skip = "skipped_empty"
	case reply.ConversationID == 0:
		skip = "skipped_no_conversation"
	}
	if skip != "" {
		metrics.InboxRelayTotal.WithLabelValues(skip).Inc()
		return ack(false)
	}

	relayed, err := h.relay.RelayAgentReply(ctx, instanceName, reply.ConversationID, reply.Content)
	if err != nil {
		logger.Error().Err(err).Msg("failed to relay agent reply")
		metrics.InboxRelayTotal.WithLabelValues("failed").Inc()
		return ackError("relay failed")
	}
	if !relayed {
		logger.Warn().Msg("agent reply for unlinked inbox conversation")
		metrics.InboxRelayTotal.WithLabelValues("unlinked").Inc()
		return ack(false)
	}

	metrics.InboxRelayTotal.WithLabelValues("relayed").Inc()
	return ack(true)
}
