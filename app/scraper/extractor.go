package scraper

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Page contains the fields extracted from an article page.
// Fields that could not be extracted are left empty.
type Page struct {
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content"`
}

// Extractor extracts article metadata and text from HTML pages.
type Extractor struct {
	// MaxContentLength limits the content by the number of runes, zero means no limit.
	MaxContentLength int
}

var (
	authorMeta = []string{
		`meta[name="author"]`,
		`meta[property="article:author"]`,
		`meta[name="byl"]`,
		`meta[name="parsely-author"]`,
		`meta[name="dc.creator"]`,
	}
	authorElements = []string{`[rel="author"]`, `[itemprop="author"]`, `.byline`}

	publishedMeta = []string{
		`meta[property="article:published_time"]`,
		`meta[name="pubdate"]`,
		`meta[name="publish-date"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
		`meta[name="dc.date"]`,
	}

	contentContainers = []string{"article", "div.content", "main"}
)

// Extract extracts author, publication time and text from an HTML page.
// Each field is extracted independently, a miss leaves the field empty.
// pageURL is optional and is used to resolve relative links.
func (e Extractor) Extract(body []byte, pageURL *url.URL) Page {
	// doc is nil for unparseable markup, readability is still tried
	doc, _ := goquery.NewDocumentFromReader(bytes.NewReader(body))

	var article *readability.Article
	if parsed, err := readability.FromReader(bytes.NewReader(body), pageURL); err == nil {
		article = &parsed
	}

	return Page{
		Author:      e.author(doc, article),
		PublishedAt: e.publishedAt(doc),
		Content:     truncate(e.content(doc, article), e.MaxContentLength),
	}
}

func (e Extractor) author(doc *goquery.Document, article *readability.Article) string {
	if doc != nil {
		if a := cleanAuthor(metaContent(doc, authorMeta...)); a != "" {
			return a
		}
	}

	if article != nil {
		if a := cleanAuthor(article.Byline); a != "" {
			return a
		}
	}

	if doc == nil {
		return ""
	}

	for _, sel := range authorElements {
		if a := cleanAuthor(doc.Find(sel).First().Text()); a != "" {
			return a
		}
	}

	return ""
}

func (e Extractor) publishedAt(doc *goquery.Document) time.Time {
	if doc == nil {
		return time.Time{}
	}

	for _, sel := range publishedMeta {
		if ts := parseDate(doc.Find(sel).First().AttrOr("content", "")); !ts.IsZero() {
			return ts
		}
	}

	return parseDate(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
}

func (e Extractor) content(doc *goquery.Document, article *readability.Article) string {
	if article != nil {
		if text := sanitize(article.TextContent); text != "" {
			return text
		}
	}

	if doc == nil {
		return ""
	}

	for _, sel := range contentContainers {
		if text := sanitize(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}

	return ""
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

var byPrefix = regexp.MustCompile(`(?i)^by\s+`)

// cleanAuthor drops the "By" prefix and rejects values which are
// obviously not names, like profile links.
func cleanAuthor(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = byPrefix.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return ""
	}
	if utf8.RuneCountInString(s) > 100 {
		return ""
	}
	return s
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	time.RFC850,
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006 15:04:05 MST",
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}

	return time.Time{}
}

var spaces = regexp.MustCompile(`\s+`)

func sanitize(s string) string {
	// nbsp
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "…"
}
