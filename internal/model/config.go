package model

import "time"

// Config is the complete jurisdoc configuration.
// Values come from defaults, ~/.jurisdoc/config.yaml, JURISDOC_* env vars and CLI flags.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Extraction LLMConfig        `yaml:"extraction" mapstructure:"extraction"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Refresh    RefreshConfig    `yaml:"refresh" mapstructure:"refresh"`
	Authority  AuthorityConfig  `yaml:"authority" mapstructure:"authority"`
	Verbose    bool             `yaml:"verbose" mapstructure:"verbose"`
}

// StoreConfig selects the record/document store
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory, sqlite, postgres
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// CacheConfig controls the hot record cache and record TTL
type CacheConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"` // none, memory, disk, layered, redis
	RecordTTL time.Duration `yaml:"record_ttl" mapstructure:"record_ttl"`
	HotTTL    time.Duration `yaml:"hot_ttl" mapstructure:"hot_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// SourceConfig controls raw content acquisition
type SourceConfig struct {
	Kind              string        `yaml:"kind" mapstructure:"kind"` // web, file
	URLTemplates      []string      `yaml:"url_templates" mapstructure:"url_templates"`
	Dir               string        `yaml:"dir" mapstructure:"dir"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LLMConfig configures one generative provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, gemini, anthropic, ollama
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GenerationConfig holds the orchestrator options
type GenerationConfig struct {
	MinConfidence  float64       `yaml:"min_confidence" mapstructure:"min_confidence"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay" mapstructure:"rate_limit_delay"`
	BatchSizeLimit int           `yaml:"batch_size_limit" mapstructure:"batch_size_limit"`
	DryRun         bool          `yaml:"dry_run" mapstructure:"dry_run"`
	BlockOnInvalid bool          `yaml:"block_on_invalid" mapstructure:"block_on_invalid"`
	MinWords       int           `yaml:"min_words" mapstructure:"min_words"`
}

// ReportConfig selects where batch reports are written
type ReportConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	S3Bucket string `yaml:"s3_bucket,omitempty" mapstructure:"s3_bucket"`
	S3Region string `yaml:"s3_region,omitempty" mapstructure:"s3_region"`
	S3Prefix string `yaml:"s3_prefix,omitempty" mapstructure:"s3_prefix"`

	// S3Endpoint points at an S3-compatible service (MinIO, LocalStack)
	S3Endpoint   string `yaml:"s3_endpoint,omitempty" mapstructure:"s3_endpoint"`
	AWSAccessKey string `yaml:"aws_access_key,omitempty" mapstructure:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key,omitempty" mapstructure:"aws_secret_key"`
}

// RefreshConfig controls the concurrent refresh command
type RefreshConfig struct {
	Workers int    `yaml:"workers" mapstructure:"workers"`
	Topic   string `yaml:"topic" mapstructure:"topic"`
}

// AuthorityConfig classifies provenance URLs by how authoritative the publisher is
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`     // Official code publishers
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"` // Legal reference sites
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`     // Host -> primary|secondary|tertiary
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "jurisdoc.db",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RecordTTL: 30 * 24 * time.Hour,
			HotTTL:    10 * time.Minute,
			Dir:       ".jurisdoc-cache",
			RedisAddr: "localhost:6379",
		},
		Source: SourceConfig{
			Kind:              "web",
			UserAgent:         "jurisdoc/0.1 (+https://github.com/ppiankov/jurisdoc)",
			Timeout:           30 * time.Second,
			MaxBodyBytes:      2_000_000,
			RespectRobots:     true,
			RequestsPerSecond: 1,
		},
		Extraction: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 2000,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			Timeout:   180,
			MaxTokens: 8000,
		},
		Generation: GenerationConfig{
			MinConfidence:  60,
			RateLimitDelay: 2 * time.Second,
			MinWords:       1200,
		},
		Report: ReportConfig{
			Dir: "./jurisdoc-reports",
		},
		Refresh: RefreshConfig{
			Workers: 4,
			Topic:   "short-term rental regulations",
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"library.municode.com",
				"codelibrary.amlegal.com",
				"ecode360.com",
				"codepublishing.com",
				"codes.iccsafe.org",
			},
			SecondaryDomains: []string{
				"law.cornell.edu",
				"justia.com",
				"casetext.com",
				"nolo.com",
			},
		},
	}
}
