// Package normalizer cleans articles and merges duplicates of the same
// article into a single record.
package normalizer

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/Semior001/newsagg/app/store"
)

var (
	errEmptyURL            = errors.New("empty url")
	errMissingSchemeOrHost = errors.New("missing scheme or host")
)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// CanonicalURL returns the canonical form of the URL: lowercased scheme
// and host, no default port, no query, no fragment, dot-segments resolved
// and no trailing slash.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", errMissingSchemeOrHost
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u)
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = canonicalPath(u.Path)
	u.RawPath = ""

	return u.String(), nil
}

func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port != "" && defaultPorts[u.Scheme] != port {
		return net.JoinHostPort(host, port)
	}
	// ipv6 literals keep their brackets
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

func canonicalPath(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	return strings.TrimRight(path.Clean(p), "/")
}

// Key returns the deduplication key of the article: the lowercased
// canonical URL, or, if the article has no valid URL, the normalized
// title together with the source.
func Key(a store.Article) string {
	if u, err := CanonicalURL(a.URL); err == nil {
		return "url:" + strings.ToLower(u)
	}
	return "title:" + strings.ToLower(collapseSpaces(a.Title)) + "|" + strings.ToLower(collapseSpaces(a.Source))
}

// ID returns the stable identifier of the article, derived from its key.
func ID(a store.Article) string {
	sum := sha1.Sum([]byte(Key(a)))
	return hex.EncodeToString(sum[:])
}
