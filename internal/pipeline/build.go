package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/ppiankov/clearview/internal/cache"
	"github.com/ppiankov/clearview/internal/classify"
	"github.com/ppiankov/clearview/internal/llm"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/util"
	"github.com/ppiankov/clearview/internal/worker"
	"github.com/rs/zerolog/log"
)

// BuildOptions override configuration at wiring time
type BuildOptions struct {
	NoRender   bool
	NoCache    bool
	NoAdvisory bool
}

// Build wires a pipeline from configuration: fetch cache, per-domain
// limiter, robots checker, headless renderer, advisory provider and hosted
// classifier. Optional collaborators that fail to initialize are logged and
// left out. The returned closer releases cache connections.
func Build(cfg *model.Config, opts BuildOptions) (*Pipeline, io.Closer, error) {
	closer := multiCloser{}

	fetchOpts := []FetcherOption{
		WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
	}
	if cfg.Cache.Enabled && !opts.NoCache {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return nil, nil, fmt.Errorf("init cache: %w", err)
		}
		if c != nil {
			fetchOpts = append(fetchOpts, WithCache(c, 0))
			if cl, ok := c.(io.Closer); ok {
				closer = append(closer, cl)
			}
		}
	}
	if cfg.HTTP.RespectRobots {
		proxy := util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
		fetchOpts = append(fetchOpts, WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, proxy)))
	}

	deps := Deps{Fetcher: NewFetcher(cfg.HTTP, fetchOpts...)}

	if cfg.Render.Enabled && !opts.NoRender {
		deps.Renderer = NewChromeRenderer(cfg.Render, cfg.HTTP.UserAgent)
	}

	if !opts.NoAdvisory {
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("advisory provider disabled")
		} else if provider != nil {
			deps.Advisor = provider
		}
	}

	if cfg.Classifier.Endpoint != "" {
		c, err := classify.NewHTTPClassifier(classify.Config{
			Endpoint:   cfg.Classifier.Endpoint,
			Token:      cfg.Classifier.Token,
			Timeout:    cfg.Classifier.Timeout,
			HTTPProxy:  cfg.HTTP.HTTPProxy,
			HTTPSProxy: cfg.HTTP.HTTPSProxy,
			NoProxy:    cfg.HTTP.NoProxy,
		})
		if err != nil {
			log.Warn().Err(err).Msg("classifier disabled")
		} else {
			deps.Classifier = c
		}
	}

	return New(cfg, deps), closer, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
