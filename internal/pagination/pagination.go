package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is the requested page. Page is 1-based.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta describes the returned page.
type Meta struct {
	CurrentPage  int  `json:"currentPage"`
	PerPage      int  `json:"perPage"`
	TotalPages   int  `json:"totalPages"`
	TotalRecords int  `json:"totalRecords"`
	HasNext      bool `json:"hasNext"`
	HasPrevious  bool `json:"hasPrevious"`
}

// ParseParams reads page and limit from the request query.
func ParseParams(r *http.Request) Params {
	return FromQuery(r.URL.Query())
}

// FromQuery reads page and limit, ignoring values that are not positive
// integers and capping limit at MaxLimit.
func FromQuery(q url.Values) Params {
	p := Params{Page: positiveInt(q.Get("page")), Limit: positiveInt(q.Get("limit"))}
	p.Normalize()
	return p
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Normalize fills in defaults and enforces the limit cap.
func (p *Params) Normalize() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// Offset is the SQL OFFSET for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// MetaFor builds the response metadata for totalRecords rows.
func (p Params) MetaFor(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      p.Page < totalPages,
		HasPrevious:  p.Page > 1,
	}
}
