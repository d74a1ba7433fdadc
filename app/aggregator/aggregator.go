// Package aggregator runs the news pipeline: fetches listings, enriches
// them with scraped fields, normalizes and stores the result.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/normalizer"
	"github.com/Semior001/newsagg/app/store"
	"github.com/Semior001/newsagg/pkg/logx"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

//go:generate moq -out mock_fetcher.go . Fetcher

// Fetcher fetches article listings.
type Fetcher interface {
	Fetch(ctx context.Context, q newsapi.Query) ([]store.Article, error)
}

// Enricher fills missing article fields. It must not fail as a whole.
type Enricher interface {
	Enrich(ctx context.Context, articles []store.Article) []store.Article
}

// Enrichers runs the enrichers one after another.
type Enrichers []Enricher

// Enrich passes the articles through every enricher.
func (e Enrichers) Enrich(ctx context.Context, articles []store.Article) []store.Article {
	for _, en := range e {
		articles = en.Enrich(ctx, articles)
	}
	return articles
}

// Notifier is notified about articles that were not stored before.
type Notifier interface {
	Notify(ctx context.Context, articles []store.Article) error
}

// Option configures the Service.
type Option func(*Service)

// WithNotifier sets the notifier about new articles. It takes effect only
// if the store is set.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// RetryOpts defines the retry policy for fetching listings.
// Only network errors are retried.
type RetryOpts struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// Service runs the news pipeline.
type Service struct {
	log      *slog.Logger
	fetcher  Fetcher
	enricher Enricher
	store    store.Interface
	notifier Notifier
	retry    RetryOpts
}

// NewService makes new Service. Store is optional, nil store turns off persistence.
func NewService(
	lg *slog.Logger,
	fetcher Fetcher,
	enricher Enricher,
	st store.Interface,
	retry RetryOpts,
	opts ...Option,
) *Service {
	s := &Service{
		log:      lg,
		fetcher:  fetcher,
		enricher: enricher,
		store:    st,
		retry:    retry,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run fetches listings for the query, enriches, deduplicates and stores them.
// Returns the deduplicated collection. Errors of the fetcher abort the run,
// scraping errors never do.
func (s *Service) Run(ctx context.Context, q newsapi.Query) ([]store.Article, error) {
	if _, ok := logx.RequestIDFromContext(ctx); !ok {
		ctx = logx.ContextWithRequestID(ctx, uuid.New().String())
	}

	start := time.Now()

	listings, err := s.fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}

	enriched := s.enricher.Enrich(ctx, listings)
	articles := normalizer.Normalize(enriched)

	if s.store != nil {
		var fresh []store.Article
		if articles, fresh, err = s.persist(ctx, articles); err != nil {
			return nil, fmt.Errorf("persist articles: %w", err)
		}
		s.notify(ctx, fresh)
	}

	s.log.InfoCtx(ctx, "aggregated articles",
		slog.Any("query", q),
		slog.Int("listings", len(listings)),
		slog.Int("articles", len(articles)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return articles, nil
}

func (s *Service) fetch(ctx context.Context, q newsapi.Query) ([]store.Article, error) {
	eb := backoff.NewExponentialBackOff()
	if s.retry.InitialInterval > 0 {
		eb.InitialInterval = s.retry.InitialInterval
	}
	b := backoff.WithContext(backoff.WithMaxRetries(eb, s.retry.MaxRetries), ctx)

	var listings []store.Article
	op := func() (err error) {
		listings, err = s.fetcher.Fetch(ctx, q)
		if err != nil && !errors.Is(err, newsapi.ErrNetwork) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		s.log.WarnCtx(ctx, "failed to fetch listings, retrying",
			slog.Any("err", err), slog.Duration("next_attempt_in", next))
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}

	return listings, nil
}

// persist merges articles with the previously stored ones with the same
// id and puts the result to the store. Returns the merged articles and
// the ones that were not stored before.
func (s *Service) persist(ctx context.Context, articles []store.Article) (result, fresh []store.Article, err error) {
	result = make([]store.Article, 0, len(articles))

	for _, a := range articles {
		stored, err := s.store.Get(ctx, a.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			result = append(result, a)
			fresh = append(fresh, a)
		case err != nil:
			return nil, nil, fmt.Errorf("get stored article %s: %w", a.ID, err)
		default:
			result = append(result, normalizer.Normalize([]store.Article{a, stored})...)
		}
	}

	if len(result) == 0 {
		return result, nil, nil
	}

	if err := s.store.Put(ctx, result...); err != nil {
		return nil, nil, fmt.Errorf("put articles: %w", err)
	}

	return result, fresh, nil
}

func (s *Service) notify(ctx context.Context, fresh []store.Article) {
	if s.notifier == nil || len(fresh) == 0 {
		return
	}

	if err := s.notifier.Notify(ctx, fresh); err != nil {
		s.log.WarnCtx(ctx, "failed to notify about new articles",
			slog.Int("articles", len(fresh)), slog.Any("err", err))
	}
}
