// Package newsapi implements a client to fetch article listings from NewsAPI.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Semior001/newsagg/app/store"
	"github.com/Semior001/newsagg/pkg/logx"
	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
	"golang.org/x/exp/slog"
)

// DefaultBaseURL is the base URL of the NewsAPI v2.
const DefaultBaseURL = "https://newsapi.org/v2"

const (
	apiKeyHeader     = "X-Api-Key"
	maxResponseBytes = 5 << 20
	removedTitle     = "[Removed]"
	codeRateLimited  = "rateLimited"
)

// Client fetches article listings from the news API.
type Client struct {
	log     *slog.Logger
	rq      *requester.Requester
	baseURL string
}

// NewClient makes new Client.
func NewClient(lg *slog.Logger, cl http.Client, baseURL, token string) *Client {
	return &Client{
		log:     lg,
		baseURL: strings.TrimRight(baseURL, "/"),
		rq: requester.New(cl,
			middleware.Header(apiKeyHeader, token),
			middleware.Header("Accept", "application/json"),
			logx.LoggingRoundTripper(lg, logx.RoundTripperOpts{
				Level:         slog.LevelDebug,
				SecretHeaders: []string{apiKeyHeader},
			}),
		),
	}
}

type listingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []listing `json:"articles"`
}

type listing struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Fetch returns article listings for the query. Listings without title
// or url are skipped. The API doesn't report categories, so the category
// of a top-headlines query is assigned to all listings. Date range queries
// aren't filtered by category and leave it empty.
func (c *Client) Fetch(ctx context.Context, q Query) ([]store.Article, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	u := c.baseURL + q.path() + "?" + q.values().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.rq.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w: %w", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.WarnCtx(ctx, "failed to close response body", slog.Any("err", err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %w", ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	var lr listingResponse
	parseErr := json.Unmarshal(body, &lr)

	ok := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	if !ok || lr.Status == "error" {
		if lr.Code == codeRateLimited {
			return nil, ErrRateLimited
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Code: lr.Code, Message: lr.Message}
	}

	if parseErr != nil {
		return nil, fmt.Errorf("unmarshal listing: %w: %w", ErrParse, parseErr)
	}

	category := ""
	if q.path() == topHeadlinesPath {
		category = q.Category
	}

	result := make([]store.Article, 0, len(lr.Articles))
	for _, l := range lr.Articles {
		a, valid := c.toArticle(ctx, l)
		if !valid {
			continue
		}
		a.Category = category
		result = append(result, a)
	}

	c.log.DebugCtx(ctx, "fetched listings",
		slog.Int("total", lr.TotalResults),
		slog.Int("received", len(lr.Articles)),
		slog.Int("valid", len(result)),
	)

	return result, nil
}

func (c *Client) toArticle(ctx context.Context, l listing) (store.Article, bool) {
	title, u := strings.TrimSpace(l.Title), strings.TrimSpace(l.URL)
	if title == "" || u == "" || title == removedTitle {
		return store.Article{}, false
	}

	a := store.Article{
		Title:    title,
		URL:      u,
		Source:   strings.TrimSpace(l.Source.Name),
		SourceID: strings.TrimSpace(l.Source.ID),
		Author:   strings.TrimSpace(l.Author),
		Excerpt:  strings.TrimSpace(l.Description),
		ImageURL: strings.TrimSpace(l.URLToImage),
	}

	if l.PublishedAt != "" {
		ts, err := time.Parse(time.RFC3339, l.PublishedAt)
		if err != nil {
			c.log.DebugCtx(ctx, "failed to parse publication time",
				slog.String("url", u), slog.String("published_at", l.PublishedAt), slog.Any("err", err))
		}
		a.PublishedAt = ts
	}

	return a, true
}
