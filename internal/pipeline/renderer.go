package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/rs/zerolog/log"
)

// ChromeRenderer loads pages in a headless Chrome and returns the DOM after
// scripts have run. Each call starts its own browser so a crash or hang is
// confined to one render.
type ChromeRenderer struct {
	allocOpts []chromedp.ExecAllocatorOption
	settleFor time.Duration
}

// Resource types failed during a render; only the DOM is needed
var blockedResourceTypes = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeStylesheet,
	network.ResourceTypeFont,
	network.ResourceTypeMedia,
}

// blockPatterns builds the interception patterns for blockedResourceTypes
func blockPatterns() []*fetch.RequestPattern {
	patterns := make([]*fetch.RequestPattern, 0, len(blockedResourceTypes))
	for _, rt := range blockedResourceTypes {
		patterns = append(patterns, &fetch.RequestPattern{
			URLPattern:   "*",
			ResourceType: rt,
			RequestStage: fetch.RequestStageRequest,
		})
	}
	return patterns
}

// NewChromeRenderer creates a renderer. Images, stylesheets, fonts and media
// are never loaded.
func NewChromeRenderer(cfg model.RenderConfig, userAgent string) *ChromeRenderer {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("mute-audio", true),
		chromedp.DisableGPU,
	)
	if userAgent != "" {
		opts = append(opts, chromedp.UserAgent(userAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return &ChromeRenderer{allocOpts: opts, settleFor: cfg.SettleFor}
}

// Render navigates to the URL and returns the outer HTML of the document.
// The caller's context bounds the whole render.
func (r *ChromeRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocOpts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	// Only blocked types match the enabled patterns, so every paused
	// request is failed
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*fetch.EventRequestPaused); ok {
			go func() {
				if err := chromedp.Run(taskCtx, fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient)); err != nil {
					log.Debug().Err(err).Str("url", e.Request.URL).Msg("block request")
				}
			}()
		}
	})

	start := time.Now()
	var markup string
	err := chromedp.Run(taskCtx,
		network.Enable(),
		fetch.Enable().WithPatterns(blockPatterns()),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settleFor),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", rawURL, err)
	}

	log.Debug().Str("url", rawURL).Dur("elapsed", time.Since(start)).Int("bytes", len(markup)).Msg("page rendered")
	return markup, nil
}
