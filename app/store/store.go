package store

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is an error that is returned when the requested entity is not found.
var ErrNotFound = errors.New("not found")

//go:generate moq -out mock_store.go . Interface

// Interface defines methods for store
type Interface interface {
	Put(ctx context.Context, articles ...Article) error
	Get(ctx context.Context, id string) (Article, error)
	List(ctx context.Context, req ListRequest) ([]Article, error)
	Delete(ctx context.Context, id string) error
}

// ListRequest defines parameters for listing articles from store.
type ListRequest struct {
	Category string
	Source   string
	Limit    int // zero means no limit
}

// Predicates returns predicates to match articles against the request.
func (r ListRequest) Predicates() []Predicate {
	return []Predicate{ByCategory(r.Category), BySource(r.Source)}
}

// sortNewest sorts articles by publication time, newest first,
// articles without publication time go last.
func sortNewest(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
