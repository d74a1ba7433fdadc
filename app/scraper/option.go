package scraper

import "golang.org/x/exp/slog"

// Options defines options for Scraper.
type Options struct {
	Workers   int
	UserAgent string
	Cache     PageCache
	Logger    *slog.Logger
}

// Option defines a function that configures Scraper.
type Option func(*Options)

// WithWorkers sets the number of pages scraped concurrently.
func WithWorkers(workers int) Option {
	return func(o *Options) { o.Workers = workers }
}

// WithUserAgent sets the User-Agent header for page requests.
func WithUserAgent(ua string) Option {
	return func(o *Options) { o.UserAgent = ua }
}

// WithCache sets the cache for extracted pages.
func WithCache(c PageCache) Option {
	return func(o *Options) { o.Cache = c }
}

// WithLogger sets the logger to use.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
