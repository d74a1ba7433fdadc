// Package store contains models and interfaces for application.
package store

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Article is a news article, either a raw listing from the news API,
// an enriched one or a normalized one.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	SourceID    string    `json:"source_id,omitempty"`
	Category    string    `json:"category"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content"`
	Excerpt     string    `json:"excerpt"`
	ImageURL    string    `json:"image_url"`
}

// Filled returns the number of non-empty fields of the article, except ID.
func (a Article) Filled() int {
	n := 0
	for _, s := range []string{a.Title, a.URL, a.Source, a.SourceID, a.Category, a.Author, a.Content, a.Excerpt, a.ImageURL} {
		if s != "" {
			n++
		}
	}
	if !a.PublishedAt.IsZero() {
		n++
	}
	return n
}

// NeedsEnrichment returns true if any of the fields, which could be
// scraped from the article page, is missing.
func (a Article) NeedsEnrichment() bool {
	return a.Author == "" || a.PublishedAt.IsZero() || a.Content == ""
}

// Predicate reports whether the article matches some condition.
type Predicate func(Article) bool

// ByCategory matches articles of the given category, case-insensitively.
// Empty category matches everything.
func ByCategory(category string) Predicate {
	return func(a Article) bool {
		return category == "" || strings.EqualFold(a.Category, category)
	}
}

// BySource matches articles of the given source by its name or by the
// source id of the news API, case-insensitively.
// Empty source matches everything.
func BySource(source string) Predicate {
	return func(a Article) bool {
		return source == "" || strings.EqualFold(a.Source, source) || strings.EqualFold(a.SourceID, source)
	}
}

// Filter returns articles matching all predicates.
func Filter(articles []Article, preds ...Predicate) []Article {
	return lo.Filter(articles, func(a Article, _ int) bool { return matchAll(a, preds) })
}

func matchAll(a Article, preds []Predicate) bool {
	return lo.EveryBy(preds, func(p Predicate) bool { return p(a) })
}
