package handler

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from the query. Out of range or
// malformed values fall back to the defaults instead of failing the request.
func ParsePagination(r *http.Request) PaginationParams {
	q := r.URL.Query()
	page := PaginationParams{Limit: DefaultLimit}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= MaxLimit {
		page.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		page.Offset = offset
	}

	return page
}
