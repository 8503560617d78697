package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wabridge/relay-server-go/internal/middleware"
	"github.com/wabridge/relay-server-go/internal/model"
)

// newRequest builds a request with chi URL params and an optional operator.
func newRequest(method, target, body string, params map[string]string, op *model.Operator) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if op != nil {
		ctx = middleware.WithOperator(ctx, op)
	}
	return req.WithContext(ctx)
}

func strPtr(s string) *string { return &s }
