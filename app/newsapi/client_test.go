package newsapi

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Semior001/newsagg/app/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

//go:embed testdata/top_headlines.json
var topHeadlines []byte

func TestClient_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		assert.Equal(t, "science", r.URL.Query().Get("category"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "token", r.Header.Get("X-Api-Key"))
		_, err := w.Write(topHeadlines)
		require.NoError(t, err)
	}))
	defer ts.Close()

	cl := NewClient(slog.Default(), http.Client{Timeout: time.Second}, ts.URL+"/v2/", "token")

	res, err := cl.Fetch(context.Background(), Query{Category: "science", PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, []store.Article{
		{
			Title:       "Scientists map the ocean floor",
			URL:         "https://www.bbc.co.uk/news/science-1?at_medium=RSS",
			Source:      "BBC News",
			SourceID:    "bbc-news",
			Category:    "science",
			Author:      "BBC News",
			PublishedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Excerpt:     "A new survey covers a quarter of the seabed.",
			ImageURL:    "https://ichef.bbci.co.uk/1.jpg",
		},
		{
			Title:    "Rocket lands upright",
			URL:      "https://example.com/rocket",
			Source:   "Example Times",
			Category: "science",
		},
	}, res)

	for _, a := range res {
		assert.NotEmpty(t, a.Title)
		assert.NotEmpty(t, a.URL)
	}
}

func TestClient_FetchEverything(t *testing.T) {
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "golang", q.Get("q"))
		assert.Equal(t, "bbc-news", q.Get("sources"))
		assert.Equal(t, "2024-05-01T00:00:00Z", q.Get("from"))
		assert.Equal(t, "2024-05-03T00:00:00Z", q.Get("to"))
		assert.Empty(t, q.Get("category"), "category is not supported by everything endpoint")
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[
			{"source":{"id":"bbc-news","name":"BBC News"},"title":"Go 1.22 released","url":"https://bbc.co.uk/go"}
		]}`))
	}))
	defer ts.Close()

	cl := NewClient(slog.Default(), http.Client{}, ts.URL, "token")

	res, err := cl.Fetch(context.Background(), Query{
		Category: "technology",
		Source:   "bbc-news",
		Keyword:  "golang",
		From:     from,
		To:       to,
	})
	require.NoError(t, err)
	assert.Equal(t, []store.Article{{
		Title:    "Go 1.22 released",
		URL:      "https://bbc.co.uk/go",
		Source:   "BBC News",
		SourceID: "bbc-news",
	}}, res, "results of the everything endpoint are not filtered by category")
}

func TestQuery_Validate(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{name: "category", query: Query{Category: "business"}},
		{name: "source", query: Query{Source: "bbc-news"}},
		{name: "keyword", query: Query{Keyword: "golang"}},
		{name: "empty", query: Query{PageSize: 10}, wantErr: ErrEmptyQuery},
		{name: "category with from", query: Query{Category: "business", From: from}, wantErr: ErrCategoryWithDates},
		{name: "category with to", query: Query{Category: "business", To: from}, wantErr: ErrCategoryWithDates},
		{name: "category and keyword with dates", query: Query{Category: "business", Keyword: "oil", From: from}},
		{name: "source with dates", query: Query{Source: "bbc-news", From: from, To: from.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_FetchCategoryWithDates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL)
	}))
	defer ts.Close()

	cl := NewClient(slog.Default(), http.Client{}, ts.URL, "token")

	_, err := cl.Fetch(context.Background(), Query{
		Category: "business",
		From:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrCategoryWithDates)
}

func TestClient_FetchEmptyListing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0,"articles":[]}`))
	}))
	defer ts.Close()

	cl := NewClient(slog.Default(), http.Client{}, ts.URL, "token")

	res, err := cl.Fetch(context.Background(), Query{Category: "no-such-category"})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		apiErr  *APIError
	}{
		{
			name:    "quota exceeded status",
			status:  http.StatusTooManyRequests,
			body:    `{"status":"error","code":"rateLimited","message":"You have made too many requests"}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "quota exceeded code",
			status:  http.StatusOK,
			body:    `{"status":"error","code":"rateLimited","message":"limit"}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"status":"ok","articles":[`,
			wantErr: ErrParse,
		},
		{
			name:   "api error",
			status: http.StatusUnauthorized,
			body:   `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`,
			apiErr: &APIError{StatusCode: http.StatusUnauthorized, Code: "apiKeyInvalid", Message: "Your API key is invalid"},
		},
		{
			name:   "non-json error",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			apiErr: &APIError{StatusCode: http.StatusBadGateway},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			cl := NewClient(slog.Default(), http.Client{}, ts.URL, "token")

			_, err := cl.Fetch(context.Background(), Query{Category: "general"})
			require.Error(t, err)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			if tt.apiErr != nil {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.apiErr, apiErr)
			}
		})
	}
}

func TestClient_FetchNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	u := ts.URL
	ts.Close()

	cl := NewClient(slog.Default(), http.Client{Timeout: time.Second}, u, "token")

	_, err := cl.Fetch(context.Background(), Query{Category: "general"})
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestClient_FetchEmptyQuery(t *testing.T) {
	cl := NewClient(slog.Default(), http.Client{}, "http://localhost", "token")

	_, err := cl.Fetch(context.Background(), Query{PageSize: 10})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
