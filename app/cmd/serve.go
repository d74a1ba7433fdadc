package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/server"
	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

// Serve is a command to run the http api and, optionally,
// refresh the articles on schedule.
type Serve struct {
	PipelineOpts

	Addr         string        `long:"addr" env:"ADDR" default:":8080" description:"address to listen on"`
	FetchTimeout time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"2m" description:"timeout for fetch requests"`

	Refresh struct {
		Schedule   string   `long:"schedule" env:"SCHEDULE" description:"cron schedule of the refresh, empty turns it off"`
		Categories []string `long:"category" env:"CATEGORIES" env-delim:"," description:"categories to refresh"`
		Sources    []string `long:"source" env:"SOURCES" env-delim:"," description:"sources to refresh"`
		Keywords   []string `long:"keyword" env:"KEYWORDS" env-delim:"," description:"keywords to refresh"`
	} `group:"refresh" namespace:"refresh" env-namespace:"REFRESH"`
}

// Execute runs the command.
func (s Serve) Execute(_ []string) error {
	lg := slog.Default()

	p, err := s.build(lg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer p.close()

	srv := &server.Server{
		Logger:       lg.With(slog.String("prefix", "server")),
		Store:        p.store,
		Aggregator:   p.svc,
		Addr:         s.Addr,
		FetchTimeout: s.FetchTimeout,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	ewg, ctx := errgroup.WithContext(ctx)
	ewg.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case sig := <-sig:
			lg.Warn("caught signal, stopping", slog.String("signal", sig.String()))
			stop()
			return ctx.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	ewg.Go(func() error {
		return srv.Run(ctx)
	})

	if s.Refresh.Schedule != "" {
		c, err := s.scheduleRefresh(ctx, lg.With(slog.String("prefix", "refresh")), p.svc)
		if err != nil {
			stop()
			_ = ewg.Wait()
			return fmt.Errorf("schedule refresh: %w", err)
		}

		c.Start()
		ewg.Go(func() error {
			<-ctx.Done()
			<-c.Stop().Done()
			lg.Info("refresh stopped")
			return ctx.Err()
		})
	}

	if err := ewg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// refreshQueries returns a query per configured category, source and keyword.
func (s Serve) refreshQueries() []newsapi.Query {
	var qs []newsapi.Query
	for _, c := range s.Refresh.Categories {
		qs = append(qs, newsapi.Query{Category: c})
	}
	for _, src := range s.Refresh.Sources {
		qs = append(qs, newsapi.Query{Source: src})
	}
	for _, kw := range s.Refresh.Keywords {
		qs = append(qs, newsapi.Query{Keyword: kw})
	}
	return qs
}

func (s Serve) scheduleRefresh(ctx context.Context, lg *slog.Logger, r server.Runner) (*cron.Cron, error) {
	qs := s.refreshQueries()
	if len(qs) == 0 {
		return nil, errors.New("no queries to refresh")
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(s.Refresh.Schedule, func() {
		for _, q := range qs {
			rctx, cancel := ctx, func() {}
			if s.FetchTimeout > 0 {
				rctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
			}
			articles, err := r.Run(rctx, q)
			cancel()
			if err != nil {
				lg.WarnCtx(ctx, "failed to refresh articles", slog.Any("query", q), slog.Any("err", err))
				continue
			}
			lg.InfoCtx(ctx, "refreshed articles", slog.Any("query", q), slog.Int("articles", len(articles)))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add refresh job with schedule %q: %w", s.Refresh.Schedule, err)
	}

	return c, nil
}
