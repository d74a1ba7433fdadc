package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/server"
	"github.com/Semior001/newsagg/app/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newsServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/v2/top-headlines", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "science", r.URL.Query().Get("category"))
		_, _ = fmt.Fprintf(w, `{"status":"ok","totalResults":2,"articles":[
			{"source":{"id":"site-news","name":"Site"},"title":"Ocean currents","url":"%[1]s/pages/1"},
			{"source":{"name":"Other"},"title":"Mars rover","url":"%[1]s/pages/2","author":"Jane"}
		]}`, srv.URL)
	})
	mux.HandleFunc("/pages/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><meta name="author" content="Page Author"></head>
			<body><article><p>Some body of the article.</p></article></body></html>`))
	})

	return srv
}

func pipelineOpts(baseURL, dir string) PipelineOpts {
	var o PipelineOpts
	o.NewsAPI.Token = "token"
	o.NewsAPI.BaseURL = baseURL
	o.NewsAPI.Timeout = time.Second
	o.Scraper.Workers = 2
	o.Scraper.Timeout = time.Second
	o.Scraper.UserAgent = "test"
	o.Scraper.Cache.Size = 10
	o.Retry.Interval = time.Millisecond
	o.StorePath = dir
	return o
}

func TestFetch_Execute(t *testing.T) {
	srv := newsServer(t)
	dir := t.TempDir()

	out := &bytes.Buffer{}
	f := Fetch{
		PipelineOpts: pipelineOpts(srv.URL+"/v2", dir),
		QueryOpts:    QueryOpts{Category: "science"},
		By:           "source",
		out:          out,
	}
	require.NoError(t, f.Execute(nil))

	assert.Contains(t, out.String(), "Ocean currents")
	assert.Contains(t, out.String(), "Mars rover")
	assert.Contains(t, out.String(), "Page Author")
	assert.Contains(t, strings.ToUpper(out.String()), "ARTICLES BY SOURCE")

	out.Reset()
	require.NoError(t, List{StorePath: dir, Source: "site", out: out}.Execute(nil))
	assert.Contains(t, out.String(), "Ocean currents")
	assert.NotContains(t, out.String(), "Mars rover")

	out.Reset()
	require.NoError(t, List{StorePath: dir, Source: "site-news", out: out}.Execute(nil))
	assert.Contains(t, out.String(), "Ocean currents", "articles are listed by the source id they were fetched with")
	assert.NotContains(t, out.String(), "Mars rover")

	out.Reset()
	require.NoError(t, Stats{StorePath: dir, By: "category", out: out}.Execute(nil))
	assert.Contains(t, out.String(), "science")
	assert.Contains(t, strings.ToUpper(out.String()), "ARTICLES BY CATEGORY")
}

func TestFetch_ExecuteEmptyQuery(t *testing.T) {
	f := Fetch{PipelineOpts: pipelineOpts("http://localhost", t.TempDir()), By: "category"}
	assert.ErrorIs(t, f.Execute(nil), newsapi.ErrEmptyQuery)
}

func TestFetch_ExecuteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := Fetch{
		PipelineOpts: pipelineOpts(srv.URL, t.TempDir()),
		QueryOpts:    QueryOpts{Keyword: "ocean"},
		By:           "category",
		out:          &bytes.Buffer{},
	}
	assert.ErrorIs(t, f.Execute(nil), newsapi.ErrRateLimited)
}

func TestQueryOpts_Query(t *testing.T) {
	q, err := QueryOpts{Keyword: "ocean", From: "2024-05-01", To: "2024-05-02T10:00:00Z", PageSize: 10}.Query()
	require.NoError(t, err)
	assert.Equal(t, newsapi.Query{
		Keyword:  "ocean",
		From:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
		PageSize: 10,
	}, q)

	_, err = QueryOpts{Keyword: "ocean", From: "yesterday"}.Query()
	assert.Error(t, err)

	_, err = QueryOpts{Category: "business", From: "2024-01-01"}.Query()
	assert.ErrorIs(t, err, newsapi.ErrCategoryWithDates)
}

func TestServe_RefreshQueries(t *testing.T) {
	var s Serve
	s.Refresh.Categories = []string{"science", "sports"}
	s.Refresh.Sources = []string{"bbc-news"}
	s.Refresh.Keywords = []string{"ocean"}

	assert.Equal(t, []newsapi.Query{
		{Category: "science"},
		{Category: "sports"},
		{Source: "bbc-news"},
		{Keyword: "ocean"},
	}, s.refreshQueries())
}

func TestServe_ScheduleRefresh(t *testing.T) {
	runner := &server.RunnerMock{RunFunc: func(context.Context, newsapi.Query) ([]store.Article, error) {
		return nil, nil
	}}

	t.Run("no queries", func(t *testing.T) {
		var s Serve
		s.Refresh.Schedule = "@every 1s"
		_, err := s.scheduleRefresh(context.Background(), nil, runner)
		assert.Error(t, err)
	})

	t.Run("bad schedule", func(t *testing.T) {
		var s Serve
		s.Refresh.Schedule = "every now and then"
		s.Refresh.Categories = []string{"science"}
		_, err := s.scheduleRefresh(context.Background(), nil, runner)
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		var s Serve
		s.Refresh.Schedule = "*/5 * * * *"
		s.Refresh.Categories = []string{"science"}
		c, err := s.scheduleRefresh(context.Background(), nil, runner)
		require.NoError(t, err)
		assert.Len(t, c.Entries(), 1)
	})
}
