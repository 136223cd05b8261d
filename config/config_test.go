package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/glia-labs/convoscope/sanitize"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %f", cfg.LLM.Temperature)
	}
	if cfg.Sanitizer.Mode != "hash" {
		t.Errorf("expected default sanitizer mode hash, got %s", cfg.Sanitizer.Mode)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing provider",
			modify:  func(c *Config) { c.LLM.Provider = "" },
			wantErr: true,
		},
		{
			name:    "missing model",
			modify:  func(c *Config) { c.LLM.Model = "" },
			wantErr: true,
		},
		{
			name:    "temperature too high",
			modify:  func(c *Config) { c.LLM.Temperature = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative max tokens",
			modify:  func(c *Config) { c.LLM.MaxTokens = -1 },
			wantErr: true,
		},
		{
			name:    "unknown sanitizer mode",
			modify:  func(c *Config) { c.Sanitizer.Mode = "scramble" },
			wantErr: true,
		},
		{
			name:    "mode none is accepted",
			modify:  func(c *Config) { c.Sanitizer.Mode = "none" },
			wantErr: false,
		},
		{
			name:    "no corpus source",
			modify:  func(c *Config) { c.Corpus.Glob = "" },
			wantErr: true,
		},
		{
			name: "nats bucket without object",
			modify: func(c *Config) {
				c.Corpus.NATS.Bucket = "corpus"
				c.Corpus.NATS.Object = ""
			},
			wantErr: true,
		},
		{
			name: "nats source without glob",
			modify: func(c *Config) {
				c.Corpus.Glob = ""
				c.Corpus.NATS.Bucket = "corpus"
				c.Corpus.NATS.Object = "conversations.jsonl"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sanitizer.Mode = "redact"
	cfg.Sanitizer.PreserveIDs = true

	scfg, err := cfg.SanitizeConfig()
	if err != nil {
		t.Fatalf("SanitizeConfig() error = %v", err)
	}
	if scfg.Mode != sanitize.ModeRedact {
		t.Errorf("expected redact mode, got %s", scfg.Mode)
	}
	if !scfg.PreserveIDs {
		t.Error("expected PreserveIDs to carry over")
	}

	cfg.Sanitizer.Mode = "bogus"
	if _, err := cfg.SanitizeConfig(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
llm:
  provider: "anthropic"
  model: "claude-sonnet-4-20250514"
  max_tokens: 4000
sanitizer:
  mode: "redact"
corpus:
  glob: "exports/**/*.jsonl"
server:
  addr: ":9090"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("expected provider anthropic, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected model %s", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 4000 {
		t.Errorf("expected max_tokens 4000, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Sanitizer.Mode != "redact" {
		t.Errorf("expected sanitizer mode redact, got %s", cfg.Sanitizer.Mode)
	}
	if cfg.Corpus.Glob != "exports/**/*.jsonl" {
		t.Errorf("unexpected glob %s", cfg.Corpus.Glob)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("unexpected addr %s", cfg.Server.Addr)
	}

	// Fields absent from the file keep their defaults.
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("expected default temperature to survive, got %f", cfg.LLM.Temperature)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	// The wrapped error must stay recognizable so the layered loader can
	// treat an absent file as a non-event instead of warning about it.
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v does not unwrap to fs.ErrNotExist", err)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	other := &Config{}
	other.LLM.Model = "override-model"
	other.Sanitizer.Mode = "remove"
	other.Corpus.NATS.URL = "nats://example:4222"
	other.Server.Addr = ":7070"

	base.Merge(other)

	if base.LLM.Model != "override-model" {
		t.Errorf("expected model override, got %s", base.LLM.Model)
	}
	if base.LLM.Provider != "ollama" {
		t.Errorf("expected provider to keep default, got %s", base.LLM.Provider)
	}
	if base.Sanitizer.Mode != "remove" {
		t.Errorf("expected sanitizer mode override, got %s", base.Sanitizer.Mode)
	}
	if base.Corpus.NATS.URL != "nats://example:4222" {
		t.Errorf("expected NATS URL override, got %s", base.Corpus.NATS.URL)
	}
	if base.Server.Addr != ":7070" {
		t.Errorf("expected addr override, got %s", base.Server.Addr)
	}

	// Merging nil is a no-op.
	base.Merge(nil)
	if base.LLM.Model != "override-model" {
		t.Error("nil merge should not change anything")
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "saved-model"
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.LLM.Model != "saved-model" {
		t.Errorf("expected saved-model after reload, got %s", loaded.LLM.Model)
	}
}
