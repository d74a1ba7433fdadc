// Package scraper retrieves article pages and extracts the fields
// the news API doesn't provide: author, publication time and content.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Semior001/newsagg/app/store"
	"github.com/Semior001/newsagg/pkg/logx"
	"github.com/go-pkgz/requester"
	"github.com/go-pkgz/requester/middleware"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// ErrFetch is returned when the article page is unreachable.
var ErrFetch = errors.New("page unreachable")

// DefaultUserAgent is sent with page requests unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (compatible; newsagg/1.0)"

const maxPageBytes = 5 << 20

// Scraper enriches articles with the fields extracted from their pages.
type Scraper struct {
	rq        *requester.Requester
	extractor Extractor
	Options
}

// NewScraper makes new Scraper.
func NewScraper(cl http.Client, extractor Extractor, opts ...Option) *Scraper {
	options := Options{
		Workers:   1,
		UserAgent: DefaultUserAgent,
		Logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Workers < 1 {
		options.Workers = 1
	}

	return &Scraper{
		rq: requester.New(cl,
			middleware.Header("User-Agent", options.UserAgent),
			logx.LoggingRoundTripper(options.Logger, logx.RoundTripperOpts{Level: slog.LevelDebug}),
		),
		extractor: extractor,
		Options:   options,
	}
}

// Scrape retrieves the page and extracts its fields.
// Returns ErrFetch if the page is unreachable.
func (s *Scraper) Scrape(ctx context.Context, u string) (Page, error) {
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, u)
		if err != nil {
			s.Logger.WarnCtx(ctx, "failed to get page from cache", slog.String("url", u), slog.Any("err", err))
		}
		if ok {
			return p, nil
		}
	}

	pageURL, err := url.Parse(u)
	if err != nil {
		return Page{}, fmt.Errorf("parse url: %w: %w", ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w: %w", ErrFetch, err)
	}

	resp, err := s.rq.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("do request: %w: %w", ErrFetch, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.Logger.WarnCtx(ctx, "failed to close response body", slog.Any("err", err))
		}
	}()

	ok := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	if !ok {
		return Page{}, fmt.Errorf("%w: bad status code: %d", ErrFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w: %w", ErrFetch, err)
	}

	p := s.extractor.Extract(body, pageURL)

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, u, p); err != nil {
			s.Logger.WarnCtx(ctx, "failed to put page to cache", slog.String("url", u), slog.Any("err", err))
		}
	}

	return p, nil
}

// Enrich returns a copy of articles with missing author, publication time
// and content filled from the article pages. Values already present are
// kept. A failure to scrape one article doesn't affect the others.
func (s *Scraper) Enrich(ctx context.Context, articles []store.Article) []store.Article {
	result := make([]store.Article, len(articles))
	copy(result, articles)

	ewg := &errgroup.Group{}
	ewg.SetLimit(s.Workers)

	for i := range result {
		if !result[i].NeedsEnrichment() || result[i].URL == "" {
			continue
		}

		i := i
		ewg.Go(func() error {
			// each worker owns result[i] only
			p, err := s.Scrape(ctx, result[i].URL)
			if err != nil {
				s.Logger.WarnCtx(ctx, "failed to scrape article",
					slog.String("url", result[i].URL), slog.Any("err", err))
				return nil
			}
			result[i] = fill(result[i], p)
			return nil
		})
	}

	_ = ewg.Wait() // workers never return errors

	return result
}

func fill(a store.Article, p Page) store.Article {
	if a.Author == "" {
		a.Author = p.Author
	}
	if a.PublishedAt.IsZero() {
		a.PublishedAt = p.PublishedAt
	}
	if a.Content == "" {
		a.Content = p.Content
	}
	return a
}
