package newsapi

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when the API host is unreachable or the request timed out.
	ErrNetwork = errors.New("network error")
	// ErrRateLimited is returned when the API quota is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrParse is returned when the API response is malformed.
	ErrParse = errors.New("malformed response")
	// ErrEmptyQuery is returned when the query has neither category, source nor keyword.
	ErrEmptyQuery = errors.New("query must have a category, a source or a keyword")
	// ErrCategoryWithDates is returned when the query filters a date range
	// by category only, which the API doesn't support.
	ErrCategoryWithDates = errors.New("date range requires a source or a keyword, category is not supported with dates")
)

// APIError is an error reported by the API itself.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api responded with status %d, code %q: %s", e.StatusCode, e.Code, e.Message)
}
