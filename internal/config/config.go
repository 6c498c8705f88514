// Package config provides configuration management for sortdeck.
//
// Every tuned constant of the classification pipeline (similarity thresholds,
// confidence bounds, cache TTL, debounce) lives here rather than in code so it
// can be re-tuned without a rebuild.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the daemon.
const (
	DefaultAddr           = "127.0.0.1:8465"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultLLMModel       = "claude-sonnet-4-5-20250929"
)

// Tunables holds the product-tuned classification constants. They have no
// documented derivation, so they stay configurable.
type Tunables struct {
	// MinSimilarity is the floor below which no existing bucket is acceptable.
	MinSimilarity float64 `yaml:"min_similarity"`
	// TieThreshold is the margin from the best score that still counts as tied.
	TieThreshold float64 `yaml:"tie_threshold"`

	// ConfidenceFloor and ConfidenceCeiling bound the similarity-derived
	// confidence mapping.
	ConfidenceFloor   int `yaml:"confidence_floor"`
	ConfidenceCeiling int `yaml:"confidence_ceiling"`

	// Fixed confidences per decision path.
	EmergentConfidence  int `yaml:"emergent_confidence"`
	NewBucketConfidence int `yaml:"new_bucket_confidence"`
	DefaultConfidence   int `yaml:"default_confidence"`

	// Pattern-match fallback scoring.
	PatternBaseConfidence int `yaml:"pattern_base_confidence"`
	PatternPerHit         int `yaml:"pattern_per_hit"`
	PatternCap            int `yaml:"pattern_cap"`
	PatternMinConfidence  int `yaml:"pattern_min_confidence"`

	CacheTTLSeconds         int `yaml:"cache_ttl_seconds"`
	EmergentDebounceSeconds int `yaml:"emergent_debounce_seconds"`
	EmergentMinIdeas        int `yaml:"emergent_min_ideas"`

	// DisableEmbeddings routes every classification straight to the LLM.
	DisableEmbeddings bool `yaml:"disable_embeddings"`
}

// CacheTTL returns the bucket-vector cache TTL as a duration.
func (t Tunables) CacheTTL() time.Duration {
	return time.Duration(t.CacheTTLSeconds) * time.Second
}

// EmergentDebounce returns the emergent-creation batching window.
func (t Tunables) EmergentDebounce() time.Duration {
	return time.Duration(t.EmergentDebounceSeconds) * time.Second
}

// Embedding configures the embedding provider.
type Embedding struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"-"`
	Dimension      int     `yaml:"dimension"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	USDPerMTokens  float64 `yaml:"usd_per_million_tokens"`
}

// LLM configures the completion provider.
type LLM struct {
	Model               string  `yaml:"model"`
	APIKey              string  `yaml:"-"`
	MaxTokens           int     `yaml:"max_tokens"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	InputUSDPerMTokens  float64 `yaml:"input_usd_per_million_tokens"`
	OutputUSDPerMTokens float64 `yaml:"output_usd_per_million_tokens"`
}

// Cache configures the TTL cache backend.
type Cache struct {
	// Backend is "memory" or "redis".
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// Config is the top-level daemon configuration.
type Config struct {
	Addr      string    `yaml:"addr"`
	DBPath    string    `yaml:"db_path"`
	Debug     bool      `yaml:"debug"`
	Cache     Cache     `yaml:"cache"`
	Embedding Embedding `yaml:"embedding"`
	LLM       LLM       `yaml:"llm"`
	Classify  Tunables  `yaml:"classify"`
}

// DataDir returns the sortdeck data directory (~/.sortdeck).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sortdeck"
	}
	return filepath.Join(home, ".sortdeck")
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Addr:   DefaultAddr,
		DBPath: filepath.Join(DataDir(), "sortdeck.db"),
		Cache: Cache{
			Backend:     "memory",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "sortdeck:",
		},
		Embedding: Embedding{
			BaseURL:        "https://api.openai.com/v1",
			Model:          DefaultEmbeddingModel,
			Dimension:      1536,
			TimeoutSeconds: 10,
			USDPerMTokens:  0.02,
		},
		LLM: LLM{
			Model:               DefaultLLMModel,
			MaxTokens:           2048,
			TimeoutSeconds:      60,
			InputUSDPerMTokens:  3.0,
			OutputUSDPerMTokens: 15.0,
		},
		Classify: Tunables{
			MinSimilarity:           0.35,
			TieThreshold:            0.05,
			ConfidenceFloor:         35,
			ConfidenceCeiling:       95,
			EmergentConfidence:      90,
			NewBucketConfidence:     75,
			DefaultConfidence:       40,
			PatternBaseConfidence:   50,
			PatternPerHit:           10,
			PatternCap:              90,
			PatternMinConfidence:    70,
			CacheTTLSeconds:         300,
			EmergentDebounceSeconds: 3,
			EmergentMinIdeas:        2,
		},
	}
}

// Load reads the YAML file at path, merges it over defaults, and applies
// environment overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays credential and endpoint overrides from the environment.
// Credentials never come from the YAML file.
func applyEnv(cfg *Config) {
	if v := firstEnv("SORTDECK_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := firstEnv("SORTDECK_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SORTDECK_OPENAI_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("SORTDECK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SORTDECK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SORTDECK_REDIS_ADDR"); v != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.RedisAddr = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
