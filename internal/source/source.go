// Package source classifies raw input before any network access.
package source

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind is the platform class of a URL
type Kind string

const (
	KindSocial   Kind = "social"
	KindDocument Kind = "document"
	KindGeneric  Kind = "generic"
)

var (
	schemePattern = regexp.MustCompile(`(?i)^https?://`)
	domainPattern = regexp.MustCompile(`^[\w.-]+\.[a-zA-Z]{2,}`)
)

var socialHosts = map[string]bool{
	"reddit.com":     true,
	"old.reddit.com": true,
	"new.reddit.com": true,
}

var documentExtensions = []string{".pdf"}

// Query parameters that only carry click, campaign or referrer tracking
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"ref":          true,
	"source":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"igshid":       true,
	"si":           true,
	"feature":      true,
}

// IsURL reports whether the trimmed input should be treated as a URL
func IsURL(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" {
		return false
	}
	if schemePattern.MatchString(s) {
		return true
	}
	if strings.IndexFunc(s, isSpace) >= 0 {
		return false
	}
	return domainPattern.MatchString(s)
}

// Host returns the lowercased host with a leading "www." removed
func Host(rawURL string) string {
	u, err := url.Parse(withScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Classify maps a URL to its platform class. Unmatched URLs are generic.
func Classify(rawURL string) Kind {
	u, err := url.Parse(withScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return KindGeneric
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if socialHosts[host] {
		return KindSocial
	}

	path := strings.ToLower(u.Path)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(path, ext) {
			return KindDocument
		}
	}

	return KindGeneric
}

// CleanURL prepends https:// when no scheme is present and drops tracking
// query parameters. Retained parameters keep their order and encoding;
// host, path and fragment are not touched. CleanURL is idempotent.
func CleanURL(rawURL string) string {
	s := withScheme(strings.TrimSpace(rawURL))

	u, err := url.Parse(s)
	if err != nil || u.RawQuery == "" {
		return s
	}

	pairs := strings.Split(u.RawQuery, "&")
	kept := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if trackingParams[strings.ToLower(key)] {
			continue
		}
		kept = append(kept, pair)
	}

	query := strings.Join(kept, "&")
	if query == u.RawQuery {
		return s
	}

	// Splice the query so the rest of the URL stays byte-identical
	qStart := strings.IndexByte(s, '?')
	qEnd := len(s)
	if i := strings.IndexByte(s[qStart:], '#'); i >= 0 {
		qEnd = qStart + i
	}
	if query == "" {
		return s[:qStart] + s[qEnd:]
	}
	return s[:qStart+1] + query + s[qEnd:]
}

func withScheme(s string) string {
	if s == "" || schemePattern.MatchString(s) {
		return s
	}
	return "https://" + s
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
