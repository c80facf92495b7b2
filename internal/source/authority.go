package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ppiankov/clearview/internal/model"
)

// Tier ranks how established a publishing host is. It is context for the
// reader and never feeds a score.
type Tier int

const (
	TierUnknown   Tier = 0
	TierPrimary   Tier = 1 // official, intergovernmental and academic hosts
	TierSecondary Tier = 2 // wire services and established newsrooms
	TierTertiary  Tier = 3 // everything else
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// AuthorityClassifier maps hosts to tiers
type AuthorityClassifier struct {
	domainMap    map[string]Tier
	primaryMap   map[string]bool
	secondaryMap map[string]bool
}

// NewAuthorityClassifier creates a classifier from configuration. Explicit
// domain mappings win over the domain lists.
func NewAuthorityClassifier(cfg model.SourceTierConfig) *AuthorityClassifier {
	a := &AuthorityClassifier{
		domainMap:    make(map[string]Tier, len(cfg.DomainMap)),
		primaryMap:   make(map[string]bool, len(cfg.PrimaryDomains)),
		secondaryMap: make(map[string]bool, len(cfg.SecondaryDomains)),
	}
	for host, tier := range cfg.DomainMap {
		a.domainMap[strings.ToLower(host)] = parseTier(tier)
	}
	for _, d := range cfg.PrimaryDomains {
		a.primaryMap[strings.ToLower(d)] = true
	}
	for _, d := range cfg.SecondaryDomains {
		a.secondaryMap[strings.ToLower(d)] = true
	}
	return a
}

// Classify returns the tier of the URL's host. Unparseable URLs are
// TierUnknown.
func (a *AuthorityClassifier) Classify(rawURL string) Tier {
	u, err := url.Parse(withScheme(strings.TrimSpace(rawURL)))
	if err != nil || u.Hostname() == "" {
		return TierUnknown
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if tier, ok := a.domainMap[host]; ok {
		return tier
	}
	if matchesDomain(host, a.primaryMap) {
		return TierPrimary
	}
	if matchesDomain(host, a.secondaryMap) {
		return TierSecondary
	}

	// foo.gov, foo.edu, foo.ac.uk, foo.gov.uk
	for _, suffix := range []string{".gov", ".edu", ".mil", ".ac.uk", ".gov.uk", ".gc.ca", ".gov.au"} {
		if strings.HasSuffix(host, suffix) {
			return TierPrimary
		}
	}
	return TierTertiary
}

// Signal describes the tier of a URL source for the report
func (a *AuthorityClassifier) Signal(rawURL string) (model.Signal, bool) {
	tier := a.Classify(rawURL)
	if tier == TierUnknown {
		return model.Signal{}, false
	}

	host := Host(rawURL)
	var desc string
	switch tier {
	case TierPrimary:
		desc = fmt.Sprintf("%s is an official or academic publisher", host)
	case TierSecondary:
		desc = fmt.Sprintf("%s is an established news organization", host)
	default:
		desc = fmt.Sprintf("%s is not a recognized publisher; check who runs it", host)
	}

	return model.Signal{
		Type:        model.SignalSourceTier,
		Severity:    model.SeverityInfo,
		Description: desc,
		Data: map[string]interface{}{
			"host": host,
			"tier": tier.String(),
		},
	}, true
}

// matchesDomain reports an exact match or a subdomain of a listed domain
func matchesDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for d := range domains {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parseTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return TierPrimary
	case "secondary", "2":
		return TierSecondary
	default:
		return TierTertiary
	}
}
