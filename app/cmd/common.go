// Package cmd contains commands for the application.
package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Semior001/newsagg/app/aggregator"
	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/notify"
	"github.com/Semior001/newsagg/app/scraper"
	"github.com/Semior001/newsagg/app/store"
	"github.com/Semior001/newsagg/app/summarizer"
	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// PipelineOpts defines options to build the news pipeline.
type PipelineOpts struct {
	NewsAPI struct {
		Token   string        `long:"token" env:"TOKEN" description:"news api token"`
		BaseURL string        `long:"base-url" env:"BASE_URL" default:"https://newsapi.org/v2" description:"base url of the news api"`
		Timeout time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"timeout for listing requests"`
	} `group:"newsapi" namespace:"newsapi" env-namespace:"NEWSAPI"`

	Scraper struct {
		Workers    int           `long:"workers" env:"WORKERS" default:"8" description:"amount of pages to scrape in parallel"`
		Timeout    time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"timeout for page requests"`
		UserAgent  string        `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; newsagg/1.0)" description:"user agent for page requests"`
		MaxContent int           `long:"max-content" env:"MAX_CONTENT" description:"max length of the extracted content, in characters, 0 means unlimited"`

		Cache struct {
			Size      int           `long:"size" env:"SIZE" default:"100" description:"max amount of pages in the in-memory cache"`
			TTL       time.Duration `long:"ttl" env:"TTL" default:"1h" description:"ttl of the cached pages"`
			RedisAddr string        `long:"redis-addr" env:"REDIS_ADDR" description:"redis address, turns on the shared cache"`
		} `group:"cache" namespace:"cache" env-namespace:"CACHE"`
	} `group:"scraper" namespace:"scraper" env-namespace:"SCRAPER"`

	Retry struct {
		MaxRetries uint64        `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"max retries of the listing request on network errors"`
		Interval   time.Duration `long:"interval" env:"INTERVAL" default:"500ms" description:"initial interval between retries"`
	} `group:"retry" namespace:"retry" env-namespace:"RETRY"`

	Summarizer struct {
		OpenAI struct {
			Token     string        `long:"token" env:"TOKEN" description:"OpenAI token, turns on summarizing of excerpts"`
			MaxTokens int           `long:"max-tokens" env:"MAX_TOKENS" default:"200" description:"max tokens for OpenAI"`
			Timeout   time.Duration `long:"timeout" env:"TIMEOUT" default:"1m" description:"timeout for OpenAI calls"`
		} `group:"openai" namespace:"openai" env-namespace:"OPENAI"`
	} `group:"summarizer" namespace:"summarizer" env-namespace:"SUMMARIZER"`

	Notify struct {
		Telegram struct {
			Token string `long:"token" env:"TOKEN" description:"telegram bot token"`
			Chat  string `long:"chat" env:"CHAT" description:"chat id or channel username to post new articles to"`
		} `group:"telegram" namespace:"telegram" env-namespace:"TELEGRAM"`
	} `group:"notify" namespace:"notify" env-namespace:"NOTIFY"`

	StorePath string `long:"store-path" env:"STORE_PATH" default:"." description:"parent dir for bolt files"`
}

// pipeline is the set of wired components, close must be called when done.
type pipeline struct {
	svc   *aggregator.Service
	store *store.Bolt
	close func()
}

func (o PipelineOpts) build(lg *slog.Logger) (*pipeline, error) {
	st, err := store.NewBolt(o.StorePath)
	if err != nil {
		return nil, fmt.Errorf("make store: %w", err)
	}

	cache, closeCache := o.pageCache(lg)

	fetcher := newsapi.NewClient(
		lg.With(slog.String("prefix", "newsapi")),
		http.Client{Timeout: o.NewsAPI.Timeout},
		o.NewsAPI.BaseURL,
		o.NewsAPI.Token,
	)

	scr := scraper.NewScraper(
		http.Client{Timeout: o.Scraper.Timeout},
		scraper.Extractor{MaxContentLength: o.Scraper.MaxContent},
		scraper.WithWorkers(o.Scraper.Workers),
		scraper.WithUserAgent(o.Scraper.UserAgent),
		scraper.WithCache(cache),
		scraper.WithLogger(lg.With(slog.String("prefix", "scraper"))),
	)

	enrichers := aggregator.Enrichers{scr}
	if o.Summarizer.OpenAI.Token != "" {
		enrichers = append(enrichers, summarizer.NewChatGPT(
			lg.With(slog.String("prefix", "chatgpt")),
			&http.Client{Timeout: o.Summarizer.OpenAI.Timeout},
			o.Summarizer.OpenAI.Token,
			o.Summarizer.OpenAI.MaxTokens,
		))
	}

	var svcOpts []aggregator.Option
	if o.Notify.Telegram.Token != "" && o.Notify.Telegram.Chat != "" {
		tg, err := notify.NewTelegram(
			lg.With(slog.String("prefix", "telegram")),
			o.Notify.Telegram.Token,
			o.Notify.Telegram.Chat,
		)
		if err != nil {
			closeCache()
			_ = st.Close()
			return nil, fmt.Errorf("make telegram notifier: %w", err)
		}
		svcOpts = append(svcOpts, aggregator.WithNotifier(tg))
	}

	svc := aggregator.NewService(
		lg.With(slog.String("prefix", "aggregator")),
		fetcher, enrichers, st,
		aggregator.RetryOpts{MaxRetries: o.Retry.MaxRetries, InitialInterval: o.Retry.Interval},
		svcOpts...,
	)

	return &pipeline{
		svc:   svc,
		store: st,
		close: func() {
			closeCache()
			if err := st.Close(); err != nil {
				lg.Error("close bolt store", slog.Any("err", err))
			}
		},
	}, nil
}

func (o PipelineOpts) pageCache(lg *slog.Logger) (scraper.PageCache, func()) {
	if o.Scraper.Cache.RedisAddr == "" {
		return scraper.NewLRUCache(o.Scraper.Cache.Size, o.Scraper.Cache.TTL), func() {}
	}

	cl := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{o.Scraper.Cache.RedisAddr}})
	return scraper.NewRedisCache(cl, o.Scraper.Cache.TTL), func() {
		if err := cl.Close(); err != nil {
			lg.Error("close redis client", slog.Any("err", err))
		}
	}
}
