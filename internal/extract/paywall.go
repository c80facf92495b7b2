package extract

import (
	"fmt"
	"net/url"
	"strings"
)

// MinGateWords is the word count below which a static page is treated as
// gated or empty
const MinGateWords = 120

// Publications known to serve subscriber-only article bodies
var paywallDomains = []string{
	"nytimes.com",
	"wsj.com",
	"ft.com",
	"bloomberg.com",
	"economist.com",
	"thetimes.co.uk",
	"theatlantic.com",
	"newyorker.com",
	"wired.com",
	"hbr.org",
	"foreignpolicy.com",
	"statista.com",
	"businessinsider.com",
}

var paywallPhrases = []string{
	"subscribe to continue reading",
	"subscribe to read",
	"sign in to read",
	"create a free account to continue",
	"you've reached your free article limit",
	"this article is for subscribers only",
	"subscribers only",
	"unlock this article",
	"get full access",
	"join to read more",
	"register to continue",
	"premium content",
	"become a member to read",
}

// PaywallReason identifies which gate check rejected a page
type PaywallReason string

const (
	ReasonKnownDomain PaywallReason = "known_domain"
	ReasonPhrase      PaywallReason = "phrase"
	ReasonTooShort    PaywallReason = "too_short"
)

// PaywallError is a quality-gate rejection
type PaywallError struct {
	Reason  PaywallReason
	Match   string // matched domain or phrase
	Message string
}

func (e *PaywallError) Error() string {
	return e.Message
}

// CheckPaywall runs the quality gate on a statically fetched page.
// Checks run in order and the first match wins; nil means accept.
func CheckPaywall(rawURL, markup string, wordCount int) error {
	if err := KnownPaywallDomain(rawURL); err != nil {
		return err
	}

	lower := strings.ToLower(markup)
	for _, phrase := range paywallPhrases {
		if strings.Contains(lower, phrase) {
			return &PaywallError{
				Reason:  ReasonPhrase,
				Match:   phrase,
				Message: "This content appears to be behind a paywall. Please paste the text directly as input instead.",
			}
		}
	}

	if wordCount < MinGateWords {
		return &PaywallError{
			Reason: ReasonTooShort,
			Message: "This page returned very little text and may be paywalled or require login. " +
				"Please paste the text directly as input instead.",
		}
	}

	return nil
}

// KnownPaywallDomain checks only the domain list, so callers can reject a
// URL before fetching it
func KnownPaywallDomain(rawURL string) *PaywallError {
	host := hostOf(rawURL)
	for _, domain := range paywallDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return &PaywallError{
				Reason: ReasonKnownDomain,
				Match:  domain,
				Message: fmt.Sprintf("'%s' is a known paywalled publication. "+
					"Please access the content directly and paste the text as input instead.", domain),
			}
		}
	}
	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
