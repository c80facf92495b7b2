package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ppiankov/clearview/internal/util"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash-lite"

// GeminiProvider implements the Provider interface for Google Gemini models
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	if config.HTTPProxy != "" || config.HTTPSProxy != "" {
		clientConfig.HTTPClient = &http.Client{
			Transport: &http.Transport{Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy)},
		}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: config}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable reports whether a key is configured; Gemini has no cheap probe
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	return p.config.APIKey != ""
}

// Advise requests a sectioned review from the Gemini API
func (p *GeminiProvider) Advise(ctx context.Context, req AdviceRequest) (*AdviceResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = defaultGeminiModel
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeoutOf(p.config, 20*time.Second))
	defer cancel()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: promptOf(req)}},
		Role:  "user",
	}}

	temperature := float32(DefaultTemperature)
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		MaxOutputTokens:   int32(maxTokensOf(req, p.config)),
		Temperature:       &temperature,
	}

	resp, err := p.client.Models.GenerateContent(ctxWithTimeout, model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return finishResponse(p.config, req, text, model, tokens)
}
