package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Dimensions != 3072 {
		t.Errorf("Dimensions = %d, want 3072", cfg.Embedding.Dimensions)
	}
	if cfg.Search.DefaultLimit != 5 {
		t.Errorf("DefaultLimit = %d, want 5", cfg.Search.DefaultLimit)
	}
	if cfg.Tool.Name != "search_pytorch_docs" {
		t.Errorf("Tool.Name = %q", cfg.Tool.Name)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
debug: true
server:
  port: 8080
storage:
  cache_dir: ./cache
embedding:
  dimensions: 8
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 8 {
		t.Errorf("Dimensions = %d, want 8", cfg.Embedding.Dimensions)
	}
	if cfg.Storage.CacheDir != filepath.Join(dir, "cache") {
		t.Errorf("CacheDir = %q, want under %q", cfg.Storage.CacheDir, dir)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Embedding.APIKey = ""
	errs := cfg.Validate()
	if _, ok := errs["embedding.api_key"]; !ok {
		t.Errorf("expected missing api key error, got %v", errs)
	}

	cfg.Embedding.APIKey = "sk-test"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("expected valid config, got %v", errs)
	}

	cfg.Storage.CacheMaxBytes = -1
	if _, ok := cfg.Validate()["storage.cache_max_bytes"]; !ok {
		t.Error("expected cache ceiling error")
	}
}

func TestRebaseDataDir(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.RebaseDataDir("/srv/torchseek")
	if cfg.Storage.CacheDir != "/srv/torchseek/embedding_cache" {
		t.Errorf("CacheDir = %q", cfg.Storage.CacheDir)
	}
	if cfg.Storage.ChunksPath != "/srv/torchseek/chunks.json" {
		t.Errorf("ChunksPath = %q", cfg.Storage.ChunksPath)
	}
}
