package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/dgallion1/capdigest/internal/chunker"
	"github.com/dgallion1/capdigest/internal/llm"
)

type Config struct {
	Port     string `env:"PORT"      envDefault:"8090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Auth
	APIKey string `env:"CAPDIGEST_API_KEY"`

	// LLM provider
	LLMProvider      string        `env:"LLM_PROVIDER"          envDefault:"anthropic"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string        `env:"ANTHROPIC_MODEL"       envDefault:"claude-sonnet-4-5-20250929"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIModel      string        `env:"OPENAI_MODEL"          envDefault:"gpt-4o-mini"`
	GeminiAPIKeys    []string      `env:"GEMINI_API_KEYS"       envSeparator:","`
	GeminiModel      string        `env:"GEMINI_MODEL"          envDefault:"gemini-2.5-flash"`
	MockResponse     string        `env:"MOCK_RESPONSE"`
	MaxOutputTokens  int           `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"1024"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT"           envDefault:"2m"`
	LLMMaxRetries    int           `env:"LLM_MAX_RETRIES"       envDefault:"3"`
	LLMRatePerSecond float64       `env:"LLM_RATE_PER_SECOND"   envDefault:"0"`
	LLMBurst         int           `env:"LLM_BURST"             envDefault:"1"`
	LLMStatsWindow   time.Duration `env:"LLM_STATS_WINDOW"      envDefault:"1h"`

	// Summarization
	MaxChunkSize    int    `env:"MAX_CHUNK_SIZE"   envDefault:"4000"`
	ChunkStrategy   string `env:"CHUNK_STRATEGY"   envDefault:"fixed"`
	MapConcurrency  int    `env:"MAP_CONCURRENCY"  envDefault:"4"`
	RecursiveReduce bool   `env:"RECURSIVE_REDUCE" envDefault:"true"`
	ReduceMaxDepth  int    `env:"REDUCE_MAX_DEPTH" envDefault:"4"`
	PromptLocale    string `env:"PROMPT_LOCALE"    envDefault:"en"`
	PromptFile      string `env:"PROMPT_FILE"`

	// Worker pool
	WorkerCount  int `env:"WORKER_COUNT"   envDefault:"4"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" envDefault:"100"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"52428800"` // 50MB

	// Job state and summary cache
	JobTTL    time.Duration `env:"JOB_TTL"    envDefault:"1h"`
	CacheSize int           `env:"CACHE_SIZE" envDefault:"256"`
	CacheTTL  time.Duration `env:"CACHE_TTL"  envDefault:"24h"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`

	// Pathstore connection, optional
	PathstoreURL    string `env:"PATHSTORE_URL"`
	PathstoreAPIKey string `env:"PATHSTORE_API_KEY"`

	// Watch folder, optional
	WatchDir       string   `env:"WATCH_DIR"`
	WatchOutputDir string   `env:"WATCH_OUTPUT_DIR"`
	WatchFormats   []string `env:"WATCH_FORMATS" envSeparator:"," envDefault:"md"`
}

// Load reads the configuration from the environment and clamps
// out-of-range values back to their defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.clamp()
	return cfg, nil
}

func (c *Config) clamp() {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = llm.DefaultMaxOutputTokens
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = 2 * time.Minute
	}
	if c.LLMBurst <= 0 {
		c.LLMBurst = 1
	}
	if c.LLMStatsWindow <= 0 {
		c.LLMStatsWindow = time.Hour
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = 4000
	}
	if c.MapConcurrency <= 0 {
		c.MapConcurrency = 4
	}
	if c.ReduceMaxDepth <= 0 {
		c.ReduceMaxDepth = 4
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 52428800
	}
	if c.JobTTL <= 0 {
		c.JobTTL = time.Hour
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.WatchOutputDir == "" && c.WatchDir != "" {
		c.WatchOutputDir = c.WatchDir + "/summaries"
	}
	formats := c.WatchFormats[:0]
	for _, f := range c.WatchFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	c.WatchFormats = formats
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("CAPDIGEST_API_KEY is required")
	}
	switch c.LLMProvider {
	case llm.ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.LLMProvider)
		}
	case llm.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		}
	case llm.ProviderGemini:
		if len(c.GeminiAPIKeys) == 0 {
			return fmt.Errorf("GEMINI_API_KEYS is required for provider %q", c.LLMProvider)
		}
	case llm.ProviderMock:
	default:
		return fmt.Errorf("LLM_PROVIDER must be one of %s, got %q", strings.Join(llm.Providers, ", "), c.LLMProvider)
	}
	if _, err := chunker.ForStrategy(c.ChunkStrategy); err != nil {
		return fmt.Errorf("CHUNK_STRATEGY: %w", err)
	}
	if c.PathstoreURL != "" && c.PathstoreAPIKey == "" {
		return fmt.Errorf("PATHSTORE_API_KEY is required when PATHSTORE_URL is set")
	}
	for _, f := range c.WatchFormats {
		if f != "md" && f != "docx" {
			return fmt.Errorf("WATCH_FORMATS: unknown format %q", f)
		}
	}
	return nil
}

// LLM returns the provider settings.
func (c Config) LLM() llm.Config {
	return llm.Config{
		Provider:        c.LLMProvider,
		AnthropicAPIKey: c.AnthropicAPIKey,
		AnthropicModel:  c.AnthropicModel,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIModel:     c.OpenAIModel,
		GeminiAPIKeys:   c.GeminiAPIKeys,
		GeminiModel:     c.GeminiModel,
		MockResponse:    c.MockResponse,
		MaxOutputTokens: c.MaxOutputTokens,
		Timeout:         c.LLMTimeout,
		MaxRetries:      c.LLMMaxRetries,
		RatePerSecond:   c.LLMRatePerSecond,
		Burst:           c.LLMBurst,
		StatsWindow:     c.LLMStatsWindow,
	}
}

// SlogLevel maps LOG_LEVEL to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
