package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/clearview/internal/extract"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/source"
	"github.com/rs/zerolog/log"
)

// Tier word-count thresholds
const (
	RenderBelowWords = 150 // static results under this try the render tier
	MinContentWords  = 50  // best tier under this is a failure
)

const noContentMessage = "Could not extract meaningful content from this page. " +
	"It may be highly dynamic, require login, or contain no readable text. " +
	"Please paste the text directly as input instead."

// GenericAdapter is the fallback adapter: static fetch first, headless
// render when the static tier fails or comes back thin
type GenericAdapter struct {
	fetcher       Fetcher
	renderer      PageRenderer
	staticTimeout time.Duration
	renderTimeout time.Duration
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter(deps Deps) *GenericAdapter {
	a := &GenericAdapter{
		fetcher:       deps.Fetcher,
		renderer:      deps.Renderer,
		staticTimeout: deps.StaticTimeout,
		renderTimeout: deps.RenderTimeout,
	}
	if a.staticTimeout <= 0 {
		a.staticTimeout = 10 * time.Second
	}
	if a.renderTimeout <= 0 {
		a.renderTimeout = 25 * time.Second
	}
	return a
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true (fallback adapter)
func (a *GenericAdapter) CanHandle(kind source.Kind) bool {
	return true
}

// tierResult is one tier's readable output
type tierResult struct {
	article *extract.Article
	method  string
	words   int
}

// Extract runs the static tier, gates it, and falls back to rendering.
// The tier with strictly more words wins.
func (a *GenericAdapter) Extract(ctx context.Context, rawURL string) model.ExtractionResult {
	return safeExtract(rawURL, model.MethodStatic, func() model.ExtractionResult {
		if gate := extract.KnownPaywallDomain(rawURL); gate != nil {
			return model.FailedExtraction(rawURL, model.InputURL, model.MethodStatic, gate.Error())
		}

		best, err := a.static(ctx, rawURL)
		var gate *extract.PaywallError
		if errors.As(err, &gate) {
			log.Info().Str("url", rawURL).Str("reason", string(gate.Reason)).Msg("quality gate rejected page")
			return model.FailedExtraction(rawURL, model.InputURL, model.MethodStatic, gate.Error())
		}
		if err != nil {
			log.Warn().Err(err).Str("url", rawURL).Str("tier", model.MethodStatic).Msg("static tier failed")
		}

		if a.renderer != nil && (err != nil || best.words < RenderBelowWords) {
			rendered, rerr := a.render(ctx, rawURL)
			switch {
			case rerr != nil:
				log.Warn().Err(rerr).Str("url", rawURL).Str("tier", model.MethodRendered).Msg("render tier failed")
			case rendered.words > best.words:
				best = rendered
			}
		}

		if best.article == nil || best.words < MinContentWords {
			method := best.method
			if method == "" {
				method = model.MethodStatic
			}
			return model.FailedExtraction(rawURL, model.InputURL, method, noContentMessage)
		}

		log.Debug().Str("url", rawURL).Str("tier", best.method).Int("words", best.words).Msg("page extracted")
		return model.NewExtraction(best.article.Text, best.article.Title, best.article.Authors, rawURL, model.InputURL, best.method)
	})
}

// static fetches the page and runs the quality gate on the raw markup
func (a *GenericAdapter) static(ctx context.Context, rawURL string) (tierResult, error) {
	page, err := a.fetcher.Fetch(ctx, rawURL, FetchOptions{
		Timeout: a.staticTimeout,
		Accept:  "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return tierResult{}, err
	}

	markup := string(page.Body)
	if err := extract.CheckPaywall(rawURL, markup, extract.WordCount(markup)); err != nil {
		return tierResult{}, err
	}

	return readTier(markup, model.MethodStatic)
}

// render loads the page headlessly under its own deadline. A timeout or
// browser crash fails this tier only.
func (a *GenericAdapter) render(ctx context.Context, rawURL string) (res tierResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panic: %v", r)
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, a.renderTimeout)
	defer cancel()

	markup, err := a.renderer.Render(rctx, rawURL)
	if err != nil {
		return tierResult{}, err
	}
	return readTier(markup, model.MethodRendered)
}

func readTier(markup, method string) (tierResult, error) {
	article, err := extract.Readable(markup)
	if err != nil {
		return tierResult{}, err
	}
	return tierResult{article: article, method: method, words: extract.WordCount(article.Text)}, nil
}
