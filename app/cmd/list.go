package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Semior001/newsagg/app/report"
	"github.com/Semior001/newsagg/app/store"
	"golang.org/x/exp/slog"
)

// List is a command to print the stored articles.
type List struct {
	StorePath string `long:"store-path" env:"STORE_PATH" default:"." description:"parent dir for bolt files"`
	Category  string `long:"category" description:"show only articles of the category"`
	Source    string `long:"source" description:"show only articles of the source, by name or news api id"`
	Limit     int    `long:"limit" default:"20" description:"max amount of articles to show, 0 means all"`

	out io.Writer
}

// Execute runs the command.
func (l List) Execute(_ []string) error {
	articles, err := listStored(l.StorePath, store.ListRequest{
		Category: l.Category,
		Source:   l.Source,
		Limit:    l.Limit,
	})
	if err != nil {
		return err
	}

	report.RenderArticles(writerOr(l.out), articles)
	return nil
}

// Stats is a command to print the distribution of the stored articles.
type Stats struct {
	StorePath string `long:"store-path" env:"STORE_PATH" default:"." description:"parent dir for bolt files"`
	By        string `long:"by" default:"category" choice:"category" choice:"source" description:"dimension of the distribution"`
	Category  string `long:"category" description:"count only articles of the category"`
	Source    string `long:"source" description:"count only articles of the source, by name or news api id"`

	out io.Writer
}

// Execute runs the command.
func (s Stats) Execute(_ []string) error {
	dim, err := report.ParseDimension(s.By)
	if err != nil {
		return err
	}

	articles, err := listStored(s.StorePath, store.ListRequest{Category: s.Category, Source: s.Source})
	if err != nil {
		return err
	}

	report.RenderDistribution(writerOr(s.out), "Articles by "+string(dim), report.Distribution(articles, dim))
	return nil
}

func listStored(dir string, req store.ListRequest) ([]store.Article, error) {
	st, err := store.NewBolt(dir)
	if err != nil {
		return nil, fmt.Errorf("make store: %w", err)
	}

	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("close bolt store", slog.Any("err", err))
		}
	}()

	articles, err := st.List(context.Background(), req)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	return articles, nil
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
