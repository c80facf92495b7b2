package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/clearview/internal/model"
)

// Provider defines the interface for external advisory reviewers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Advise reviews the text and heuristic scores and returns sectioned advice
	Advise(ctx context.Context, req AdviceRequest) (*AdviceResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// AdviceRequest contains the input for an advisory review
type AdviceRequest struct {
	// Text is the subject text; only the first MaxExcerptChars are sent
	Text string

	// SentenceCount is the requested summary length
	SentenceCount int

	// Heuristic scores the reviewer is asked to explain
	ScamProbability         float64
	SubjectivityProbability float64
	BiasCategories          []string // categories with some signal

	// Prompt overrides the default prompt when set
	Prompt string

	// Model overrides the configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// AdviceResponse contains the reviewer's output
type AdviceResponse struct {
	// Raw is the unparsed response text
	Raw string

	// Sections maps each recognised section to its text
	Sections map[model.Section]string

	// CitedURLs are the URLs present in the response (for verification)
	CitedURLs []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds advisory provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// NoForeignLinks rejects advice that cites URLs absent from the source text
	NoForeignLinks bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// Prompt defaults
const (
	MaxExcerptChars    = 5000
	DefaultMaxTokens   = 700
	DefaultTemperature = 0.2
	BiasMidpoint       = 0.5
)

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:       "", // Disabled by default
		Timeout:        20,
		NoForeignLinks: true,
		MaxTokens:      DefaultMaxTokens,
	}
}

// Section tags used in the prompt and in response parsing, in prompt order
var sectionTags = []struct {
	tag     string
	section model.Section
}{
	{"=== SUMMARY ===", model.SectionSummary},
	{"=== SCAM ANALYSIS ===", model.SectionScam},
	{"=== OBJECTIVITY ===", model.SectionObjectivity},
	{"=== BIAS ===", model.SectionBias},
}

const systemPrompt = "You are a media literacy assistant. Write for a general audience. " +
	"Use plain language. Follow the section headers exactly as given."

// SectionTag returns the prompt header for a section
func SectionTag(s model.Section) string {
	for _, t := range sectionTags {
		if t.section == s {
			return t.tag
		}
	}
	return ""
}

// BuildPrompt constructs the default sectioned advisory prompt
func BuildPrompt(req AdviceRequest) string {
	biasInfo := "No bias categories scored above 0.5."
	if len(req.BiasCategories) > 0 {
		biasInfo = fmt.Sprintf("Bias categories with some signal (score >= 0.5): %s", strings.Join(req.BiasCategories, ", "))
	}

	sentences := req.SentenceCount
	if sentences <= 0 {
		sentences = 5
	}

	var b strings.Builder
	b.WriteString("Analyze the following text across four dimensions. ")
	b.WriteString("Use the exact section headers shown. Write 2-3 plain sentences per section.\n\n")
	fmt.Fprintf(&b, "%s\nSummarize the text in approximately %d sentences. Return only the summary.\n\n",
		SectionTag(model.SectionSummary), sentences)
	fmt.Fprintf(&b, "%s\nHeuristic scam probability: %.1f%%. "+
		"Explain whether this content is safe or suspicious and what the reader should do.\n\n",
		SectionTag(model.SectionScam), req.ScamProbability*100)
	fmt.Fprintf(&b, "%s\nHeuristic subjectivity score: %.1f%%. "+
		"Explain whether this text is objective or subjective and what that means for the reader.\n\n",
		SectionTag(model.SectionObjectivity), req.SubjectivityProbability*100)
	fmt.Fprintf(&b, "%s\n%s. Explain the bias patterns found (or their absence). "+
		"Do NOT describe promotional tone or writing style, only confirmed bias types.\n\n",
		SectionTag(model.SectionBias), biasInfo)
	b.WriteString("TEXT:\n")
	b.WriteString(Excerpt(req.Text))

	return b.String()
}

// Excerpt truncates text to MaxExcerptChars runes
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxExcerptChars {
		return text
	}
	return string(runes[:MaxExcerptChars])
}

// ParseSections splits a response on the known section tags, in whatever
// order the model emitted them. Sections with empty bodies are omitted.
func ParseSections(raw string) map[model.Section]string {
	result := make(map[model.Section]string)
	for _, t := range sectionTags {
		start := strings.Index(raw, t.tag)
		if start == -1 {
			continue
		}
		contentStart := start + len(t.tag)
		contentEnd := len(raw)
		for _, other := range sectionTags {
			if other.tag == t.tag {
				continue
			}
			if idx := strings.Index(raw[contentStart:], other.tag); idx != -1 && contentStart+idx < contentEnd {
				contentEnd = contentStart + idx
			}
		}
		if text := strings.TrimSpace(raw[contentStart:contentEnd]); text != "" {
			result[t.section] = text
		}
	}
	return result
}

// finishResponse parses the raw text and applies the link guard
func finishResponse(cfg Config, req AdviceRequest, raw, model string, tokens int) (*AdviceResponse, error) {
	raw = strings.TrimSpace(raw)
	citedURLs := extractURLs(raw)

	// Advice must never point readers at links the source did not contain
	if cfg.NoForeignLinks {
		for _, u := range citedURLs {
			if !strings.Contains(req.Text, u) {
				return nil, fmt.Errorf("LINK LEAK: advisory cited URL not present in source: %s", u)
			}
		}
	}

	return &AdviceResponse{
		Raw:        raw,
		Sections:   ParseSections(raw),
		CitedURLs:  citedURLs,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

// Helper functions

func timeoutOf(cfg Config, fallback time.Duration) time.Duration {
	if cfg.Timeout > 0 {
		return time.Duration(cfg.Timeout) * time.Second
	}
	return fallback
}

func maxTokensOf(req AdviceRequest, cfg Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if cfg.MaxTokens > 0 {
		return cfg.MaxTokens
	}
	return DefaultMaxTokens
}

func promptOf(req AdviceRequest) string {
	if req.Prompt != "" {
		return req.Prompt
	}
	return BuildPrompt(req)
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)]+`)

// extractURLs extracts all URLs from text using regex
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:!?")
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}

	return unique
}
