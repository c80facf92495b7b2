// Package adapters turns a classified URL into an ExtractionResult. One
// adapter per platform class; the generic page adapter is the fallback.
package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/source"
)

// Adapter defines the interface for platform-specific extractors.
// Extract never panics outward; every failure is carried in the result.
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter handles the given URL class
	CanHandle(kind source.Kind) bool

	// Extract fetches and extracts the URL
	Extract(ctx context.Context, rawURL string) model.ExtractionResult
}

// FetchOptions tunes a single fetch
type FetchOptions struct {
	Timeout  time.Duration
	Accept   string
	MaxBytes int64 // 0 uses the fetcher default
	NoCache  bool
}

// Fetcher retrieves a URL's bytes
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*model.Page, error)
}

// PageRenderer loads a URL in a headless browser and returns the rendered
// DOM as markup
type PageRenderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// Deps are the collaborators and limits shared by the built-in adapters
type Deps struct {
	Fetcher  Fetcher
	Renderer PageRenderer // nil disables the render tier

	StaticTimeout   time.Duration
	SocialTimeout   time.Duration
	DocumentTimeout time.Duration
	RenderTimeout   time.Duration
	MaxDocumentSize int64
}

// DepsFromConfig fills adapter limits from configuration
func DepsFromConfig(cfg *model.Config, fetcher Fetcher, renderer PageRenderer) Deps {
	return Deps{
		Fetcher:         fetcher,
		Renderer:        renderer,
		StaticTimeout:   cfg.HTTP.Timeout,
		SocialTimeout:   cfg.HTTP.SocialTimeout,
		DocumentTimeout: cfg.HTTP.DocumentTimeout,
		RenderTimeout:   cfg.Render.Timeout,
		MaxDocumentSize: cfg.HTTP.MaxBodyBytes,
	}
}

// Registry manages platform adapters
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry(deps Deps) *Registry {
	registry := &Registry{
		adapters: make([]Adapter, 0),
	}

	registry.Register(NewSocialAdapter(deps.Fetcher, deps.SocialTimeout))
	registry.Register(NewDocumentAdapter(deps.Fetcher, deps.DocumentTimeout, deps.MaxDocumentSize))

	// Set generic adapter as fallback
	registry.generic = NewGenericAdapter(deps)

	return registry
}

// Register registers a new adapter; later registrations are tried last
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the adapter for a URL class
func (r *Registry) FindAdapter(kind source.Kind) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(kind) {
			return adapter
		}
	}
	return r.generic
}

// safeExtract runs fn and converts a panic into a failed result
func safeExtract(rawURL, method string, fn func() model.ExtractionResult) (res model.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.FailedExtraction(rawURL, model.InputURL, method, fmt.Sprintf("Extraction failed unexpectedly: %v", r))
		}
	}()
	return fn()
}
