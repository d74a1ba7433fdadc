package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/report"
	"golang.org/x/exp/slog"
)

// QueryOpts defines the listing query.
type QueryOpts struct {
	Category string `long:"category" description:"category of articles"`
	Source   string `long:"source" description:"source id of articles"`
	Keyword  string `long:"keyword" description:"keyword to search for"`
	From     string `long:"from" description:"oldest publication date, RFC3339 or YYYY-MM-DD"`
	To       string `long:"to" description:"newest publication date, RFC3339 or YYYY-MM-DD"`
	PageSize int    `long:"page-size" description:"amount of listings per page"`
	Page     int    `long:"page" description:"page number"`
}

// Query parses the options into the listing query.
func (o QueryOpts) Query() (q newsapi.Query, err error) {
	q = newsapi.Query{
		Category: o.Category,
		Source:   o.Source,
		Keyword:  o.Keyword,
		PageSize: o.PageSize,
		Page:     o.Page,
	}

	if q.From, err = parseDate(o.From); err != nil {
		return newsapi.Query{}, fmt.Errorf("parse from: %w", err)
	}

	if q.To, err = parseDate(o.To); err != nil {
		return newsapi.Query{}, fmt.Errorf("parse to: %w", err)
	}

	return q, q.Validate()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	return time.Parse(time.DateOnly, s)
}

// Fetch is a command to fetch, enrich and store the articles once.
type Fetch struct {
	PipelineOpts
	QueryOpts `group:"query"`
	By        string `long:"by" default:"category" choice:"category" choice:"source" description:"dimension of the distribution"`

	out io.Writer
}

// Execute runs the command.
func (f Fetch) Execute(_ []string) error {
	q, err := f.Query()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	dim, err := report.ParseDimension(f.By)
	if err != nil {
		return err
	}

	lg := slog.Default()

	p, err := f.build(lg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	articles, err := p.svc.Run(ctx, q)
	if err != nil {
		return fmt.Errorf("aggregate articles: %w", err)
	}

	out := writerOr(f.out)
	report.RenderArticles(out, articles)
	report.RenderDistribution(out, "Articles by "+string(dim), report.Distribution(articles, dim))

	return nil
}
