package newsapi

import (
	"net/url"
	"strconv"
	"time"
)

const (
	topHeadlinesPath = "/top-headlines"
	everythingPath   = "/everything"
)

// Query defines parameters of the listing request.
type Query struct {
	Category string    `json:"category"`
	Source   string    `json:"source"`
	Keyword  string    `json:"keyword"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	PageSize int       `json:"page_size"`
	Page     int       `json:"page"`
}

// Validate checks that the query could be sent to the API.
func (q Query) Validate() error {
	if q.Category == "" && q.Source == "" && q.Keyword == "" {
		return ErrEmptyQuery
	}
	if q.path() == everythingPath && q.Source == "" && q.Keyword == "" {
		return ErrCategoryWithDates
	}
	return nil
}

// path returns the API endpoint path for the query, date ranges
// are supported only by the "everything" endpoint.
func (q Query) path() string {
	if !q.From.IsZero() || !q.To.IsZero() {
		return everythingPath
	}
	return topHeadlinesPath
}

func (q Query) values() url.Values {
	v := url.Values{}

	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}

	if q.path() == topHeadlinesPath {
		set("category", q.Category)
	}
	set("sources", q.Source)
	set("q", q.Keyword)

	if !q.From.IsZero() {
		v.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}

	return v
}
