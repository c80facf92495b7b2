package source

import (
	"testing"

	"github.com/ppiankov/clearview/internal/model"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://example.com/a", true},
		{"HTTP://EXAMPLE.COM", true},
		{"  https://example.com  ", true},
		{"example.com", true},
		{"news.bbc.co.uk/article", true},
		{"sub-domain.example.org/path?q=1", true},
		{"example.c", false},
		{"this is example.com in a sentence", false},
		{"just some text", false},
		{"", false},
		{"   ", false},
		{"version1.2", false},
	}

	for _, tt := range tests {
		if got := IsURL(tt.input); got != tt.want {
			t.Errorf("IsURL(%q) = %v, expected %v", tt.input, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"https://www.reddit.com/r/golang/comments/abc/title/", KindSocial},
		{"https://old.reddit.com/r/x/comments/1/", KindSocial},
		{"https://new.reddit.com/r/x/comments/1/", KindSocial},
		{"reddit.com/r/x", KindSocial},
		{"https://example.com/files/report.PDF", KindDocument},
		{"https://example.com/report.pdf?download=1", KindDocument},
		{"https://example.com/pdf/report", KindGeneric},
		{"https://notreddit.com/r/x", KindGeneric},
		{"https://example.com/", KindGeneric},
	}

	for _, tt := range tests {
		if got := Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %s, expected %s", tt.url, got, tt.want)
		}
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://WWW.Example.com:8443/a"); got != "example.com" {
		t.Errorf("Expected example.com, got %s", got)
	}
	if got := Host("example.org/path"); got != "example.org" {
		t.Errorf("Expected example.org, got %s", got)
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"adds scheme", "example.com/a", "https://example.com/a"},
		{"no query", "https://example.com/a/b", "https://example.com/a/b"},
		{"strips tracking", "https://example.com/a?utm_source=x&utm_medium=y", "https://example.com/a"},
		{
			"keeps order of retained",
			"https://example.com/a?z=1&utm_campaign=c&a=2&fbclid=abc&m=3",
			"https://example.com/a?z=1&a=2&m=3",
		},
		{"case insensitive keys", "https://example.com/?UTM_Source=x&id=7", "https://example.com/?id=7"},
		{"keeps fragment", "https://example.com/a?gclid=1&p=2#section-3", "https://example.com/a?p=2#section-3"},
		{"strips all keeps fragment", "https://example.com/a?ref=home#top", "https://example.com/a#top"},
		{"keeps raw encoding", "https://example.com/s?q=a%20b+c&si=xyz", "https://example.com/s?q=a%20b+c"},
		{"keeps non tracking lookalikes", "https://example.com/?source_id=1&refresh=2", "https://example.com/?source_id=1&refresh=2"},
		{"keeps path case", "https://Example.com/Some/Path?igshid=1", "https://Example.com/Some/Path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanURL(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCleanURL_Idempotent(t *testing.T) {
	inputs := []string{
		"example.com/a?utm_source=x&keep=1",
		"https://example.com/a?z=1&utm_campaign=c&a=2#frag",
		"https://example.com/?",
		"http://example.com/path?ref=a&ref=b",
		"https://example.com/a#frag?utm_source=x",
	}

	for _, in := range inputs {
		once := CleanURL(in)
		if twice := CleanURL(once); twice != once {
			t.Errorf("CleanURL not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestAuthorityClassifier(t *testing.T) {
	classifier := NewAuthorityClassifier(model.SourceTierConfig{
		PrimaryDomains:   []string{"who.int"},
		SecondaryDomains: []string{"reuters.com"},
		DomainMap:        map[string]string{"blog.reuters.com": "tertiary"},
	})

	tests := []struct {
		url      string
		expected Tier
	}{
		{"https://www.who.int/news/item/1", TierPrimary},
		{"https://apps.who.int:443/x", TierPrimary},
		{"https://reuters.com/world", TierSecondary},
		{"https://www.reuters.com/world", TierSecondary},
		{"https://blog.reuters.com/post", TierTertiary},
		{"https://data.cdc.gov/page", TierPrimary},
		{"https://www.ox.ac.uk/research", TierPrimary},
		{"https://notreuters.com/x", TierTertiary},
		{"example.com/path", TierTertiary},
		{"", TierUnknown},
	}
	for _, tt := range tests {
		if got := classifier.Classify(tt.url); got != tt.expected {
			t.Errorf("Classify(%q): expected %s, got %s", tt.url, tt.expected, got)
		}
	}
}

func TestAuthorityClassifier_Signal(t *testing.T) {
	classifier := NewAuthorityClassifier(model.DefaultConfig().Sources)

	sig, ok := classifier.Signal("https://www.reuters.com/world/story")
	if !ok {
		t.Fatal("Expected a signal for a URL source")
	}
	if sig.Type != model.SignalSourceTier || sig.Severity != model.SeverityInfo {
		t.Errorf("Unexpected signal %+v", sig)
	}
	if sig.Data["tier"] != "secondary" || sig.Data["host"] != "reuters.com" {
		t.Errorf("Unexpected signal data %v", sig.Data)
	}

	if _, ok := classifier.Signal(""); ok {
		t.Error("Expected no signal without a host")
	}
}
