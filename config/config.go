// Package config provides configuration loading and management for Convoscope.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glia-labs/convoscope/sanitize"
)

// Config represents the complete Convoscope configuration
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Sanitizer SanitizerConfig `yaml:"sanitizer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Server    ServerConfig    `yaml:"server"`
}

// LLMConfig configures the language model settings
type LLMConfig struct {
	// Provider selects the registered provider (anthropic, openai, ollama)
	Provider string `yaml:"provider"`
	// Model is the model identifier (e.g., "claude-sonnet-4-20250514")
	Model string `yaml:"model"`
	// Endpoint overrides the provider's default API endpoint
	Endpoint string `yaml:"endpoint"`
	// Temperature controls randomness (0.0-1.0)
	Temperature float64 `yaml:"temperature"`
	// MaxTokens caps the synthesized answer length
	MaxTokens int `yaml:"max_tokens"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// SanitizerConfig configures PII handling
type SanitizerConfig struct {
	// Mode is one of: hash, redact, remove, none
	Mode string `yaml:"mode"`
	// PreserveIDs keeps pseudonymized identifiers referenceable across records
	PreserveIDs bool `yaml:"preserve_ids"`
	// EnableNameDetection turns on honorific-based name matching
	EnableNameDetection bool `yaml:"enable_name_detection"`
}

// CorpusConfig configures where conversation records are loaded from
type CorpusConfig struct {
	// Glob matches the record files to load (doublestar syntax)
	Glob string `yaml:"glob"`
	// Watch reloads the corpus when matched files change
	Watch bool `yaml:"watch"`
	// NATS loads the corpus from a JetStream object store instead of disk
	NATS NATSCorpusConfig `yaml:"nats"`
}

// NATSCorpusConfig configures the optional object-store corpus source
type NATSCorpusConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
	Object string `yaml:"object"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address (e.g., ":8080")
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "qwen2.5:32b",
			Endpoint:    "",
			Temperature: 0.2,
			MaxTokens:   2000,
			Timeout:     5 * time.Minute,
		},
		Sanitizer: SanitizerConfig{
			Mode:                "hash",
			PreserveIDs:         true,
			EnableNameDetection: false,
		},
		Corpus: CorpusConfig{
			Glob:  "data/*.jsonl",
			Watch: false,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm.max_tokens must not be negative")
	}
	if _, err := sanitize.ParseMode(c.Sanitizer.Mode); err != nil {
		return fmt.Errorf("sanitizer.mode: %w", err)
	}
	if c.Corpus.Glob == "" && c.Corpus.NATS.Bucket == "" {
		return fmt.Errorf("corpus.glob or corpus.nats is required")
	}
	if c.Corpus.NATS.Bucket != "" && c.Corpus.NATS.Object == "" {
		return fmt.Errorf("corpus.nats.object is required when corpus.nats.bucket is set")
	}
	return nil
}

// SanitizeConfig converts the YAML section into the sanitizer's config type.
func (c *Config) SanitizeConfig() (sanitize.Config, error) {
	mode, err := sanitize.ParseMode(c.Sanitizer.Mode)
	if err != nil {
		return sanitize.Config{}, err
	}
	return sanitize.Config{
		Mode:                mode,
		PreserveIDs:         c.Sanitizer.PreserveIDs,
		EnableNameDetection: c.Sanitizer.EnableNameDetection,
	}, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.LLM.Provider != "" {
		c.LLM.Provider = other.LLM.Provider
	}
	if other.LLM.Model != "" {
		c.LLM.Model = other.LLM.Model
	}
	if other.LLM.Endpoint != "" {
		c.LLM.Endpoint = other.LLM.Endpoint
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.MaxTokens != 0 {
		c.LLM.MaxTokens = other.LLM.MaxTokens
	}
	if other.LLM.Timeout != 0 {
		c.LLM.Timeout = other.LLM.Timeout
	}

	if other.Sanitizer.Mode != "" {
		c.Sanitizer.Mode = other.Sanitizer.Mode
	}
	if other.Sanitizer.PreserveIDs {
		c.Sanitizer.PreserveIDs = true
	}
	if other.Sanitizer.EnableNameDetection {
		c.Sanitizer.EnableNameDetection = true
	}

	if other.Corpus.Glob != "" {
		c.Corpus.Glob = other.Corpus.Glob
	}
	if other.Corpus.Watch {
		c.Corpus.Watch = true
	}
	if other.Corpus.NATS.URL != "" {
		c.Corpus.NATS.URL = other.Corpus.NATS.URL
	}
	if other.Corpus.NATS.Bucket != "" {
		c.Corpus.NATS.Bucket = other.Corpus.NATS.Bucket
	}
	if other.Corpus.NATS.Object != "" {
		c.Corpus.NATS.Object = other.Corpus.NATS.Object
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
}
