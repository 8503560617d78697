package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wabridge/relay-server-go/internal/audit"
	apperrors "github.com/wabridge/relay-server-go/internal/errors"
	"github.com/wabridge/relay-server-go/internal/httputil"
	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/repository"
	"github.com/wabridge/relay-server-go/internal/util"
)

type contextKey string

const OperatorContextKey contextKey = "operator"

func GetOperator(ctx context.Context) *model.Operator {
	if op, ok := ctx.Value(OperatorContextKey).(*model.Operator); ok {
		return op
	}
	return nil
}

// WithOperator returns a copy of ctx carrying op.
func WithOperator(ctx context.Context, op *model.Operator) context.Context {
	return context.WithValue(ctx, OperatorContextKey, op)
}

type AuthMiddleware struct {
	operatorRepo repository.OperatorRepository
}

func NewAuthMiddleware(operatorRepo repository.OperatorRepository) *AuthMiddleware {
	return &AuthMiddleware{operatorRepo: operatorRepo}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		op, err := m.operatorRepo.FindByTokenHash(r.Context(), util.HashToken(token))
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: database error")
			httputil.WriteError(w, apperrors.Internal("Authentication failed"))
			return
		}

		if op == nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			httputil.WriteError(w, apperrors.InvalidToken("Invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
	})
}

// extractToken accepts a query token for EventSource clients, which cannot set headers.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
