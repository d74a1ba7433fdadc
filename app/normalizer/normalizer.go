package normalizer

import (
	"sort"
	"strings"

	"github.com/Semior001/newsagg/app/store"
)

// Normalize cleans the articles and merges the ones sharing the same key.
// Among duplicates the most complete record wins, ties are broken by the
// latest publication time, then by input order, and its empty fields
// are filled from the other duplicates in the same order.
// The result keeps the order of the first appearance of each key.
// Articles with neither title nor URL are dropped.
func Normalize(articles []store.Article) []store.Article {
	var keys []string
	groups := map[string][]store.Article{}

	for _, a := range articles {
		a = clean(a)
		if a.Title == "" && a.URL == "" {
			continue
		}

		key := Key(a)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], a)
	}

	result := make([]store.Article, 0, len(keys))
	for _, key := range keys {
		merged := merge(groups[key])
		if u, err := CanonicalURL(merged.URL); err == nil {
			merged.URL = u
		}
		merged.ID = ID(merged)
		result = append(result, merged)
	}

	return result
}

func merge(dups []store.Article) store.Article {
	if len(dups) == 1 {
		return dups[0]
	}

	sort.SliceStable(dups, func(i, j int) bool {
		fi, fj := dups[i].Filled(), dups[j].Filled()
		if fi != fj {
			return fi > fj
		}
		return dups[i].PublishedAt.After(dups[j].PublishedAt)
	})

	res := dups[0]
	for _, d := range dups[1:] {
		res = fillEmpty(res, d)
	}
	return res
}

func fillEmpty(dst, src store.Article) store.Article {
	fill := func(d *string, s string) {
		if *d == "" {
			*d = s
		}
	}

	fill(&dst.Title, src.Title)
	fill(&dst.URL, src.URL)
	fill(&dst.Source, src.Source)
	fill(&dst.SourceID, src.SourceID)
	fill(&dst.Category, src.Category)
	fill(&dst.Author, src.Author)
	fill(&dst.Content, src.Content)
	fill(&dst.Excerpt, src.Excerpt)
	fill(&dst.ImageURL, src.ImageURL)

	if dst.PublishedAt.IsZero() {
		dst.PublishedAt = src.PublishedAt
	}

	return dst
}

func clean(a store.Article) store.Article {
	a.Title = collapseSpaces(a.Title)
	a.URL = strings.TrimSpace(a.URL)
	a.Source = collapseSpaces(a.Source)
	a.SourceID = strings.TrimSpace(a.SourceID)
	a.Category = strings.ToLower(collapseSpaces(a.Category))
	a.Author = collapseSpaces(a.Author)
	a.Content = strings.TrimSpace(a.Content)
	a.Excerpt = collapseSpaces(a.Excerpt)
	a.ImageURL = strings.TrimSpace(a.ImageURL)
	if !a.PublishedAt.IsZero() {
		a.PublishedAt = a.PublishedAt.UTC()
	}
	return a
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
