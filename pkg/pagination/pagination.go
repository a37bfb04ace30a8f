package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string. A 1-based page
// parameter takes precedence over offset.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		offset = (page - 1) * limit
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

type Response struct {
	Data           interface{} `json:"data"`
	Total          int         `json:"total"`
	Limit          int         `json:"limit"`
	Offset         int         `json:"offset"`
	HasMore        bool        `json:"has_more"`
	NextOffset     *int        `json:"next_offset,omitempty"`
	PreviousOffset *int        `json:"previous_offset,omitempty"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	p := Params{Limit: limit, Offset: offset}
	r := &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: p.HasNext(total),
	}
	if r.HasMore {
		next := p.NextOffset()
		r.NextOffset = &next
	}
	if p.HasPrevious() {
		prev := p.PreviousOffset()
		r.PreviousOffset = &prev
	}
	return r
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset never goes below zero.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}
