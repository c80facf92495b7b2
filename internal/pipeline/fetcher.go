package pipeline

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/clearview/internal/cache"
	"github.com/ppiankov/clearview/internal/extract/adapters"
	"github.com/ppiankov/clearview/internal/model"
	"github.com/ppiankov/clearview/internal/util"
	"github.com/ppiankov/clearview/internal/worker"
	"github.com/rs/zerolog/log"
)

// ErrRobotsDisallowed is returned when robots.txt forbids a fetch
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Fetcher fetches URLs over HTTP with caching and per-domain pacing.
// It makes exactly one attempt per call.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
}

// FetcherOption configures optional Fetcher collaborators
type FetcherOption func(*Fetcher)

// WithCache stores successful fetches for ttl; 0 uses each layer's default
func WithCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLimiter paces requests per domain
func WithLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRobots checks robots.txt before fetching
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// NewFetcher creates a Fetcher from the HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// cachedPage is the cache encoding of a Page; Body is kept unlike the
// API encoding
type cachedPage struct {
	URL      string          `json:"url"`
	FinalURL string          `json:"final_url"`
	Body     []byte          `json:"body"`
	Meta     model.FetchMeta `json:"meta"`
}

// Fetch retrieves the URL. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts adapters.FetchOptions) (*model.Page, error) {
	key := cache.PageKey(rawURL)
	if f.cache != nil && !opts.NoCache {
		if data, ok := f.cache.Get(ctx, key); ok {
			var cp cachedPage
			if err := json.Unmarshal(data, &cp); err == nil {
				cp.Meta.FromCache = true
				log.Debug().Str("url", rawURL).Msg("fetch cache hit")
				return &model.Page{URL: cp.URL, FinalURL: cp.FinalURL, Body: cp.Body, Meta: cp.Meta}, nil
			}
		}
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil || !allowed {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ErrRobotsDisallowed)
		}
		if f.limiter != nil {
			f.limiter.ApplyCrawlDelay(rawURL, delay)
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	page, err := f.do(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}

	if f.cache != nil && !opts.NoCache {
		data, err := json.Marshal(cachedPage{URL: page.URL, FinalURL: page.FinalURL, Body: page.Body, Meta: page.Meta})
		if err == nil {
			if err := f.cache.Set(ctx, key, data, f.cacheTTL); err != nil {
				log.Warn().Err(err).Str("url", rawURL).Msg("fetch cache write failed")
			}
		}
	}
	return page, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, opts adapters.FetchOptions) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	accept := opts.Accept
	if accept == "" {
		accept = "*/*"
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	maxBytes := f.maxBytes
	if opts.MaxBytes > 0 {
		maxBytes = opts.MaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &model.Page{
		URL:      rawURL,
		FinalURL: resp.Request.URL.String(),
		Body:     body,
		Meta:     meta,
	}, nil
}
