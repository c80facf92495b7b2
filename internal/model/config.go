package model

import "time"

// Config is the complete clearview configuration.
// Loaded from defaults, then ~/.clearview/config.yaml, then CLEARVIEW_* env, then flags.
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Render       RenderConfig      `yaml:"render" mapstructure:"render"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Analysis     AnalysisConfig    `yaml:"analysis" mapstructure:"analysis"`
	Sources      SourceTierConfig  `yaml:"sources" mapstructure:"sources"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Classifier   ClassifierConfig  `yaml:"classifier" mapstructure:"classifier"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls the static fetch tier
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`                   // static fetch, ~10s
	DocumentTimeout time.Duration `yaml:"document_timeout" mapstructure:"document_timeout"` // binary documents
	SocialTimeout   time.Duration `yaml:"social_timeout" mapstructure:"social_timeout"`     // social-post JSON API
	UserAgent       string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRedirects    int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	InsecureTLS     bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots   bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy       string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy      string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy         string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RenderConfig controls the headless render tier
type RenderConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`       // independent of HTTP.Timeout
	SettleFor time.Duration `yaml:"settle_for" mapstructure:"settle_for"` // wait after DOMContentLoaded
	ExecPath  string        `yaml:"exec_path,omitempty" mapstructure:"exec_path"`
	Headless  bool          `yaml:"headless" mapstructure:"headless"`
}

// CacheConfig controls the fetch cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisURL  string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"` // optional shared layer
}

// RateLimitConfig controls per-domain fetch pacing
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// AnalysisConfig controls scoring cutoffs and escalation bands
type AnalysisConfig struct {
	SentenceCount      int     `yaml:"sentence_count" mapstructure:"sentence_count"`
	MaxTextLength      int     `yaml:"max_text_length" mapstructure:"max_text_length"`
	ScamCutoff         float64 `yaml:"scam_cutoff" mapstructure:"scam_cutoff"`
	SubjectivityCutoff float64 `yaml:"subjectivity_cutoff" mapstructure:"subjectivity_cutoff"`
	BiasCutoff         float64 `yaml:"bias_cutoff" mapstructure:"bias_cutoff"`
	High               float64 `yaml:"high" mapstructure:"high"`
	Low                float64 `yaml:"low" mapstructure:"low"`
}

// SourceTierConfig ranks publishing hosts. DomainMap values are
// "primary", "secondary" or "tertiary".
type SourceTierConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// LLMConfig configures the optional external advisory reviewer
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, "" (disabled)
	Model     string        `yaml:"model" mapstructure:"model"`
	APIKey    string        `yaml:"-" mapstructure:"api_key"`
	BaseURL   string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ClassifierConfig configures the optional hosted classifier
type ClassifierConfig struct {
	Endpoint string        `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Token    string        `yaml:"-" mapstructure:"token"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// StoreConfig configures best-effort persistence
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // mysql, sqlite, "" (disabled)
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowOrigins   []string `yaml:"allow_origins" mapstructure:"allow_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:         10 * time.Second,
			DocumentTimeout: 30 * time.Second,
			SocialTimeout:   10 * time.Second,
			UserAgent:       "Mozilla/5.0 (compatible; Clearview/0.1; +https://github.com/ppiankov/clearview)",
			MaxBodyBytes:    10_000_000,
			MaxRedirects:    5,
		},
		Render: RenderConfig{
			Enabled:   true,
			Timeout:   25 * time.Second,
			SettleFor: 2 * time.Second,
			Headless:  true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskDir:   defaultCacheDir(),
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Analysis: AnalysisConfig{
			SentenceCount:      5,
			MaxTextLength:      50_000,
			ScamCutoff:         0.5,
			SubjectivityCutoff: 0.5,
			BiasCutoff:         0.5,
			High:               0.70,
			Low:                0.20,
		},
		Sources: SourceTierConfig{
			PrimaryDomains: []string{
				"who.int", "un.org", "europa.eu", "nih.gov", "doi.org",
				"nature.com", "science.org", "arxiv.org",
			},
			SecondaryDomains: []string{
				"reuters.com", "apnews.com", "bbc.com", "bbc.co.uk", "npr.org",
				"theguardian.com", "nytimes.com", "washingtonpost.com", "wsj.com",
				"economist.com", "ft.com", "wikipedia.org",
			},
		},
		LLM: LLMConfig{
			Timeout:   20 * time.Second,
			MaxTokens: 700,
		},
		Classifier: ClassifierConfig{
			Timeout: 15 * time.Second,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowOrigins:   []string{"http://localhost:3000"},
			MaxUploadBytes: 5 << 20,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}
