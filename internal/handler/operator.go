package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	apperrors "github.com/wabridge/relay-server-go/internal/errors"
	"github.com/wabridge/relay-server-go/internal/middleware"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/service"
	"github.com/wabridge/relay-server-go/internal/util"
)

type Console interface {
	ListConversations(ctx context.Context, op *model.Operator, params model.ListConversationsParams) (*service.ConversationPage, error)
	ListMessages(ctx context.Context, op *model.Operator, conversationID string, limit, offset int) (*service.MessagePage, error)
	SetIntervention(ctx context.Context, op *model.Operator, conversationID string, enabled bool) (*model.Conversation, error)
	Reply(ctx context.Context, op *model.Operator, conversationID, text string) (*model.Message, error)
	Close(ctx context.Context, op *model.Operator, conversationID string) (*model.Conversation, error)
}

var conversationStatuses = []string{
	string(model.ConversationStatusActive),
	string(model.ConversationStatusClosed),
	string(model.ConversationStatusWaiting),
}

type interventionRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type replyRequest struct {
	Text string `json:"text" validate:"required,max=4096"`
}

// OperatorHandler serves the operator console API. Routes expect an
// authenticated operator in the request context.
type OperatorHandler struct {
	console  Console
	validate *validator.Validate
}

func NewOperatorHandler(console Console) *OperatorHandler {
	return &OperatorHandler{
		console:  console,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *OperatorHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListConversations)
	r.Route("/{conversationId}", func(r chi.Router) {
		r.Get("/messages", h.ListMessages)
		r.Post("/intervention", h.SetIntervention)
		r.Post("/reply", h.Reply)
		r.Post("/close", h.Close)
	})

	return r
}

// GET /v1/conversations
func (h *OperatorHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	op := middleware.GetOperator(r.Context())
	if op == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && !util.IsValidEnum(status, conversationStatuses) {
		writeError(w, apperrors.InvalidInput("status", "must be one of "+strings.Join(conversationStatuses, ", ")))
		return
	}

	page := ParsePagination(r)
	result, err := h.console.ListConversations(r.Context(), op, model.ListConversationsParams{
		InstanceName: r.URL.Query().Get("instance"),
		Status:       model.ConversationStatus(status),
		Limit:        page.Limit,
		Offset:       page.Offset,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /v1/conversations/{conversationId}/messages
func (h *OperatorHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	op, conversationID, ok := h.target(w, r)
	if !ok {
		return
	}

	page := ParsePagination(r)
	result, err := h.console.ListMessages(r.Context(), op, conversationID, page.Limit, page.Offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /v1/conversations/{conversationId}/intervention
func (h *OperatorHandler) SetIntervention(w http.ResponseWriter, r *http.Request) {
	op, conversationID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req interventionRequest
	if !h.decode(w, r, &req) {
		return
	}

	conv, err := h.console.SetIntervention(r.Context(), op, conversationID, *req.Enabled)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// POST /v1/conversations/{conversationId}/reply
func (h *OperatorHandler) Reply(w http.ResponseWriter, r *http.Request) {
	op, conversationID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req replyRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.console.Reply(r.Context(), op, conversationID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// POST /v1/conversations/{conversationId}/close
func (h *OperatorHandler) Close(w http.ResponseWriter, r *http.Request) {
	op, conversationID, ok := h.target(w, r)
	if !ok {
		return
	}

	conv, err := h.console.Close(r.Context(), op, conversationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *OperatorHandler) target(w http.ResponseWriter, r *http.Request) (*model.Operator, string, bool) {
	op := middleware.GetOperator(r.Context())
	if op == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return nil, "", false
	}

	conversationID := chi.URLParam(r, "conversationId")
	if !util.IsValidUUID(conversationID) {
		writeError(w, apperrors.InvalidInput("conversationId", "must be a UUID"))
		return nil, "", false
	}

	return op, conversationID, true
}

func (h *OperatorHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = fe.Tag()
			}
			writeError(w, apperrors.ValidationError("Invalid request body").WithDetails(fields))
			return false
		}
		writeError(w, apperrors.ValidationError(err.Error()))
		return false
	}

	return true
}

func (h *OperatorHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !apperrors.IsAppError(err) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("operator request failed")
		err = apperrors.Internal("Internal server error")
	} else if apperrors.GetCode(err) == apperrors.ErrCodeUpstream {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("operator request failed upstream")
	}
	writeError(w, err)
}
