package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// Config holds the corpusd API configuration. Loaded once at startup and
// passed into constructors; nothing reads the environment below main.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
	Qdrant  QdrantConfig  `yaml:"qdrant"`
	Cache   CacheConfig   `yaml:"cache"`
	Admin   AdminConfig   `yaml:"admin"`
	Ask     AskConfig     `yaml:"ask"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// OpenAIConfig holds provider credentials and model identifiers.
type OpenAIConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	EmbedModel     string  `yaml:"embed_model"`
	ChatModel      string  `yaml:"chat_model"`
	AssistantModel string  `yaml:"assistant_model"`
	VectorStoreID  string  `yaml:"vector_store_id"`
	Temperature    float32 `yaml:"temperature"`
}

// QdrantConfig holds the vector store settings.
type QdrantConfig struct {
	URL                  string  `yaml:"url"`
	APIKey               string  `yaml:"api_key"`
	CollectionCanon      string  `yaml:"collection_canon"`
	CollectionMainstream string  `yaml:"collection_mainstream"`
	VectorSize           int     `yaml:"vector_size"`
	TopK                 int     `yaml:"top_k"`
	ScoreThreshold       float32 `yaml:"score_threshold"`
}

// CacheConfig holds the optional Redis embedding cache settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLHours int      `yaml:"ttl_hours"`
}

// AdminConfig holds the shared secret for the ingestion endpoint.
// An empty token disables ingestion (requests get 500, never 200).
type AdminConfig struct {
	Token string `yaml:"token"`
}

// AskConfig holds the grounding pipeline settings.
type AskConfig struct {
	Policy         string `yaml:"policy"` // direct, hosted_strict, hosted_fallback
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	PollMax        int    `yaml:"poll_max"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Hosted jobs poll up to ~60s before giving up; the response
		// deadline has to outlive that.
		c.HTTP.WriteTimeoutSec = 90
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenAI.EmbedModel == "" {
		c.OpenAI.EmbedModel = "text-embedding-3-small"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.AssistantModel == "" {
		c.OpenAI.AssistantModel = "gpt-4o"
	}
	if c.OpenAI.Temperature <= 0 {
		c.OpenAI.Temperature = 0.2
	}
	if c.Qdrant.CollectionCanon == "" {
		c.Qdrant.CollectionCanon = "paul_canon"
	}
	if c.Qdrant.CollectionMainstream == "" {
		c.Qdrant.CollectionMainstream = "paul_mainstream"
	}
	if c.Qdrant.VectorSize <= 0 {
		c.Qdrant.VectorSize = 1536
	}
	if c.Qdrant.TopK <= 0 {
		c.Qdrant.TopK = 5
	}
	if c.Qdrant.ScoreThreshold <= 0 {
		c.Qdrant.ScoreThreshold = 0.25
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 14
	}
	if c.Ask.Policy == "" {
		c.Ask.Policy = string(domain.PolicyHostedStrict)
	}
	if c.Ask.PollIntervalMS <= 0 {
		c.Ask.PollIntervalMS = 1500
	}
	if c.Ask.PollMax <= 0 {
		c.Ask.PollMax = 40
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if !domain.GroundingPolicy(c.Ask.Policy).Valid() {
		return fmt.Errorf(
			"ask.policy must be one of \"direct\", \"hosted_strict\", \"hosted_fallback\", got %q",
			c.Ask.Policy,
		)
	}
	// Ingestion always writes to Qdrant, whatever the grounding policy.
	if c.Qdrant.URL == "" {
		return fmt.Errorf("qdrant.url is required")
	}
	switch domain.GroundingPolicy(c.Ask.Policy) {
	case domain.PolicyHostedStrict, domain.PolicyHostedFallback:
		if c.OpenAI.VectorStoreID == "" {
			return fmt.Errorf("openai.vector_store_id is required for policy %q", c.Ask.Policy)
		}
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache.enabled")
	}
	return nil
}

// Policy returns the configured grounding policy.
func (c *Config) Policy() domain.GroundingPolicy {
	return domain.GroundingPolicy(c.Ask.Policy)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
