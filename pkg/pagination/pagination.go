// Package pagination reads listing windows from query strings and wraps the
// listed items with their paging metadata.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a listing window.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit/offset, or the 1-based page/pageSize pair the
// dashboard pages send. Out-of-range values fall back to the defaults.
func FromContext(c echo.Context) Params {
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = queryInt(c, "pageSize")
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	offset := queryInt(c, "offset")
	if offset <= 0 {
		offset = 0
		if page := queryInt(c, "page"); page > 1 {
			offset = (page - 1) * limit
		}
	}
	return Params{Limit: limit, Offset: offset}
}

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

// Page is one window of a listing.
type Page[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Page    int  `json:"page"`
	Pages   int  `json:"pages"`
	HasMore bool `json:"hasMore"`
}

// NewResponse builds the page for items. A nil slice is sent as an empty list.
func NewResponse[T any](items []T, total, limit, offset int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	p := &Page[T]{
		Data:    items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Page:    1,
		HasMore: offset+len(items) < total,
	}
	if limit > 0 {
		p.Page = offset/limit + 1
		p.Pages = (total + limit - 1) / limit
	}
	return p
}
