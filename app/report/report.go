// Package report aggregates articles into distributions and renders
// articles and distributions as text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Semior001/newsagg/app/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
)

// Dimension is an article attribute to aggregate by.
type Dimension string

// Supported dimensions.
const (
	ByCategory Dimension = "category"
	BySource   Dimension = "source"
)

// Unknown is the label for articles with an empty dimension value.
const Unknown = "Unknown"

// ParseDimension parses the dimension name.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case ByCategory, BySource:
		return d, nil
	case "":
		return ByCategory, nil
	default:
		return "", fmt.Errorf("unknown dimension %q", s)
	}
}

// Bucket is a number of articles with the same label.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution counts articles by the dimension. Buckets are sorted by
// count, descending, then by label.
func Distribution(articles []store.Article, dim Dimension) []Bucket {
	groups := lo.GroupBy(articles, func(a store.Article) string {
		label := a.Category
		if dim == BySource {
			label = a.Source
		}
		if label == "" {
			return Unknown
		}
		return label
	})

	buckets := lo.MapToSlice(groups, func(label string, as []store.Article) Bucket {
		return Bucket{Label: label, Count: len(as)}
	})

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})

	return buckets
}

const barWidth = 40

// RenderDistribution writes the distribution as a table with bars.
func RenderDistribution(w io.Writer, title string, buckets []Bucket) {
	maxCount := lo.MaxBy(buckets, func(a, b Bucket) bool { return a.Count > b.Count }).Count
	total := lo.SumBy(buckets, func(b Bucket) int { return b.Count })

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Label", "Articles", ""})
	for _, b := range buckets {
		t.AppendRow(table.Row{b.Label, b.Count, bar(b.Count, maxCount)})
	}
	t.AppendFooter(table.Row{"Total", total, ""})
	t.Render()
}

func bar(count, maxCount int) string {
	if count <= 0 || maxCount <= 0 {
		return ""
	}
	n := count * barWidth / maxCount
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}

const dateLayout = "2006-01-02 15:04"

// RenderArticles writes the articles as a table.
func RenderArticles(w io.Writer, articles []store.Article) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 60},
		{Name: "Content", WidthMax: 60},
	})
	t.AppendHeader(table.Row{"Title", "Source", "Category", "Author", "Published", "Content"})
	for _, a := range articles {
		published := ""
		if !a.PublishedAt.IsZero() {
			published = a.PublishedAt.Format(dateLayout)
		}
		t.AppendRow(table.Row{a.Title, a.Source, a.Category, a.Author, published, preview(a.Content, 100)})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d articles", len(articles))})
	t.Render()
}

func preview(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
