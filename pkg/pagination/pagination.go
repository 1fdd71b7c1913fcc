package pagination

import (
	"net/http"
	"strconv"
)

// MaxPage caps the page number so the offset cannot overflow.
const MaxPage = 1 << 20

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// Limits bounds the page size a caller may ask for.
type Limits struct {
	DefaultPerPage int
	MaxPerPage     int
}

// DefaultLimits matches the storefront listing defaults.
func DefaultLimits() Limits {
	return Limits{DefaultPerPage: 24, MaxPerPage: 100}
}

// FromRequest extracts page/per_page from the query string. Invalid or out of
// range values fall back to the defaults; pages past MaxPage are clamped.
func FromRequest(r *http.Request, limits Limits) Params {
	q := r.URL.Query()
	p := Params{Page: 1, PerPage: limits.DefaultPerPage}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = min(v, MaxPage)
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil && v > 0 && v <= limits.MaxPerPage {
		p.PerPage = v
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Window is an offset based slice of a result set, as used by the export feed.
type Window struct {
	Start int
	Count int
}

// FromOffset builds a Window from raw start/count values. A non-positive
// count means maxCount; negative starts are clamped to 0.
func FromOffset(start, count, maxCount int) Window {
	if start < 0 {
		start = 0
	}
	if count <= 0 || count > maxCount {
		count = maxCount
	}
	return Window{Start: start, Count: count}
}

// Meta describes the position of a page inside the full result.
type Meta struct {
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewMeta computes page metadata for totalCount results.
func NewMeta(totalCount int, params Params) Meta {
	totalPages := 0
	if params.PerPage > 0 {
		totalPages = (totalCount + params.PerPage - 1) / params.PerPage
	}

	return Meta{
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
