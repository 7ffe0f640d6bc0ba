package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/newsdesk/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

//go:embed registry.yml
var defaultRegistry []byte

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server" jsonschema:"description=Server configuration"`
	Schedule   ScheduleConfig   `yaml:"schedule" json:"schedule" jsonschema:"description=Refresh scheduler configuration"`
	Proxy      ProxyConfig      `yaml:"proxy" json:"proxy" jsonschema:"description=Feed proxy configuration"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for article summaries"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Article text extraction for summaries"`
	Database   DatabaseConfig   `yaml:"database" json:"database" jsonschema:"description=Sync history database configuration"`

	Registry `yaml:",inline"`
}

// Registry is the data-driven part of configuration: categories, sources and keyword table.
// Loaded once at startup, the embedded default is used for any part left empty.
type Registry struct {
	Categories []domain.Category   `yaml:"categories" json:"categories" jsonschema:"description=Display categories in tab order"`
	Sources    []domain.Source     `yaml:"sources" json:"sources" jsonschema:"description=Feed sources in merge order"`
	Keywords   map[string][]string `yaml:"keywords" json:"keywords" jsonschema:"description=Relevance keywords per category key"`
}

// ServerConfig holds http server settings
type ServerConfig struct {
	Listen  string        `yaml:"listen" json:"listen" jsonschema:"required,default=:8080,description=HTTP server listen address"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"required,default=30s,description=HTTP server timeout"`
	BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"default=http://localhost:8080,description=Base URL for RSS feeds and external links"`
}

// ScheduleConfig holds refresh scheduler settings
type ScheduleConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval" json:"update_interval" jsonschema:"required,default=15m,description=Refresh interval"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" jsonschema:"required,default=15s,description=Timeout of a single feed fetch"`
	MaxWorkers     int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=0,description=Maximum concurrent fetches and 0 means unlimited"`
}

// ProxyConfig holds feed proxy settings. With empty URL feeds are fetched directly.
type ProxyConfig struct {
	URL       string `yaml:"url" json:"url" jsonschema:"description=Proxy endpoint taking feed url in the url query parameter"`
	UserAgent string `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent for feed requests"`
}

// LLMConfig holds LLM configuration for article summaries
type LLMConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"required,default=https://api.groq.com/openai/v1,description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable) and summaries are disabled if empty"`
	Model        string        `yaml:"model" json:"model" jsonschema:"required,default=llama-3.3-70b-versatile,description=Model name"`
	Temperature  *float64      `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,minimum=0,maximum=2,description=Temperature for response generation (0 allowed)"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=500,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=Prompt template with {{title}} {{summary}} and {{text}} placeholders"`
	RateLimit    time.Duration `yaml:"rate_limit" json:"rate_limit" jsonschema:"default=1s,description=Minimal interval between upstream requests"`
}

// defaultTemperature used when llm.temperature is not set, explicit 0 is kept
const defaultTemperature = 0.3

// GetTemperature returns configured temperature or the default one if not set
func (c LLMConfig) GetTemperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

// ExtractionConfig holds article text extraction settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Extract article text to enrich summaries"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Extraction timeout per article"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=100,description=Minimum text length to consider valid"`
	MaxTextLength int           `yaml:"max_text_length" json:"max_text_length" jsonschema:"default=4000,description=Extracted text is cut to this many characters"`
}

// DatabaseConfig holds sync history database settings
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" json:"dsn" jsonschema:"description=Database connection string (e.g. file:newsdesk.db) and history is disabled if empty"`
	HistoryLimit int    `yaml:"history_limit" json:"history_limit" jsonschema:"default=500,description=Number of sync runs to keep"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse makes configuration from YAML content, sets defaults and validates it
func Parse(data []byte) (*Config, error) {
	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := VerifyAgainstSchema(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

// Default returns configuration with all defaults and the embedded registry
func Default() (*Config, error) {
	return Parse([]byte("{}"))
}

// DefaultRegistry returns the embedded source registry
func DefaultRegistry() (Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(defaultRegistry, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse default registry: %w", err)
	}
	return reg, nil
}

func (c *Config) setDefaults() error {
	// set defaults for server
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}

	// set defaults for schedule
	if c.Schedule.UpdateInterval == 0 {
		c.Schedule.UpdateInterval = 15 * time.Minute
	}
	if c.Schedule.FetchTimeout == 0 {
		c.Schedule.FetchTimeout = 15 * time.Second
	}

	// set defaults for LLM
	if c.LLM.Endpoint == "" {
		c.LLM.Endpoint = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "llama-3.3-70b-versatile"
	}
	if c.LLM.Temperature == nil {
		t := defaultTemperature
		c.LLM.Temperature = &t
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.LLM.RateLimit == 0 {
		c.LLM.RateLimit = time.Second
	}

	// set defaults for extraction
	if c.Extraction.Timeout == 0 {
		c.Extraction.Timeout = 10 * time.Second
	}
	if c.Extraction.MinTextLength == 0 {
		c.Extraction.MinTextLength = 100
	}
	if c.Extraction.MaxTextLength == 0 {
		c.Extraction.MaxTextLength = 4000
	}

	// set defaults for database, empty dsn kept as is and disables history
	if c.Database.HistoryLimit == 0 {
		c.Database.HistoryLimit = 500
	}

	// fill registry parts not set by user
	if len(c.Categories) > 0 && len(c.Sources) > 0 && len(c.Keywords) > 0 {
		return nil
	}
	reg, err := DefaultRegistry()
	if err != nil {
		return err
	}
	if len(c.Categories) == 0 {
		c.Categories = reg.Categories
	}
	if len(c.Sources) == 0 {
		c.Sources = reg.Sources
	}
	if len(c.Keywords) == 0 {
		c.Keywords = reg.Keywords
	}
	return nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	// validate schedule config
	if cfg.Schedule.UpdateInterval < time.Minute {
		return fmt.Errorf("schedule.update_interval must be at least 1 minute")
	}
	if cfg.Schedule.FetchTimeout < time.Second {
		return fmt.Errorf("schedule.fetch_timeout must be at least 1 second")
	}
	if cfg.Schedule.MaxWorkers < 0 {
		return fmt.Errorf("schedule.max_workers must be non-negative")
	}

	// validate LLM config
	if t := cfg.LLM.GetTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be at least 1")
	}

	// validate extraction config
	if cfg.Extraction.Enabled {
		if cfg.Extraction.Timeout < time.Second {
			return fmt.Errorf("extraction timeout must be at least 1 second")
		}
		if cfg.Extraction.MinTextLength < 0 {
			return fmt.Errorf("extraction min_text_length must be non-negative")
		}
	}

	return validateRegistry(cfg.Registry)
}

// validateRegistry checks every source maps to a known category
// and broad sources have keywords to be scored against
func validateRegistry(reg Registry) error {
	known := make(map[string]bool, len(reg.Categories))
	for _, c := range reg.Categories {
		if c.Key == "" || c.Key == "all" {
			return fmt.Errorf("invalid category key %q", c.Key)
		}
		if known[c.Key] {
			return fmt.Errorf("duplicate category %q", c.Key)
		}
		known[c.Key] = true
	}

	for i, src := range reg.Sources {
		if !known[src.Category] {
			return fmt.Errorf("source #%d %q: unknown category %q", i, src.Name, src.Category)
		}
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			return fmt.Errorf("source #%d %q: url must be http(s), got %q", i, src.Name, src.URL)
		}
		if src.Broad && len(reg.Keywords[src.Category]) == 0 {
			return fmt.Errorf("source #%d %q: broad source needs keywords for category %q", i, src.Name, src.Category)
		}
	}
	return nil
}

// CategoryLabel returns display label of the category, the key itself if not found
func (r Registry) CategoryLabel(key string) string {
	for _, c := range r.Categories {
		if c.Key == key {
			return c.Label
		}
	}
	return key
}

// HasCategory checks if category key is in the registry
func (r Registry) HasCategory(key string) bool {
	for _, c := range r.Categories {
		if c.Key == key {
			return true
		}
	}
	return false
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetBaseURL returns base url for links in generated feeds
func (c *Config) GetBaseURL() string {
	return c.Server.BaseURL
}

// GetRegistry returns categories, sources and keywords
func (c *Config) GetRegistry() Registry {
	return c.Registry
}
