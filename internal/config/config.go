// Package config provides configuration loading and structs for the torchseek server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Tool      ToolConfig      `yaml:"tool"`
}

// ServerConfig holds HTTP server settings for the SSE transport.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// KeepAliveSeconds is the interval between SSE keep-alive comments.
	KeepAliveSeconds int `yaml:"keep_alive_seconds"`
}

// StorageConfig holds vector store and data paths.
type StorageConfig struct {
	QdrantHost     string `yaml:"qdrant_host"`
	QdrantPort     int    `yaml:"qdrant_port"`
	CollectionName string `yaml:"collection_name"`
	CacheDir       string `yaml:"cache_dir"`
	// CacheMaxBytes caps the on-disk size of the embedding cache.
	CacheMaxBytes int64  `yaml:"cache_max_bytes"`
	ChunksPath    string `yaml:"chunks_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// APIKey is normally taken from the OPENAI_API_KEY environment variable.
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	// BatchPauseMillis is the pause between successive provider calls.
	BatchPauseMillis int `yaml:"batch_pause_millis"`
	TimeoutSeconds   int `yaml:"timeout_seconds"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit    int `yaml:"default_limit"`
	InsertBatchSize int `yaml:"insert_batch_size"`
}

// ToolConfig holds the exposed tool's name and description.
type ToolConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands relative paths. A missing file is not an
// error: defaults plus environment are used so the server can run with zero config.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.CacheDir = expandPath(cfg.Storage.CacheDir, configDir)
	cfg.Storage.ChunksPath = expandPath(cfg.Storage.ChunksPath, configDir)

	return &cfg, nil
}

// applyEnv overlays environment variables onto cfg. Only credentials and
// endpoints come from the environment; everything else lives in the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("QDRANT_HOST"); v != "" {
		cfg.Storage.QdrantHost = v
	}
}

// RebaseDataDir points all data paths at dir. Used by the --data-dir flag.
func (c *Config) RebaseDataDir(dir string) {
	c.Storage.CacheDir = filepath.Join(dir, "embedding_cache")
	c.Storage.ChunksPath = filepath.Join(dir, "chunks.json")
}

// Validate returns all configuration problems keyed by field name.
// An empty map means the config is usable.
func (c *Config) Validate() map[string]string {
	errs := map[string]string{}
	if c.Embedding.APIKey == "" {
		errs["embedding.api_key"] = "OPENAI_API_KEY environment variable is required"
	}
	if c.Embedding.Dimensions <= 0 {
		errs["embedding.dimensions"] = "embedding dimensions must be positive"
	}
	if c.Embedding.BatchSize <= 0 {
		errs["embedding.batch_size"] = "embedding batch size must be positive"
	}
	if c.Search.DefaultLimit <= 0 {
		errs["search.default_limit"] = "default limit must be positive"
	}
	if c.Storage.CacheMaxBytes <= 0 {
		errs["storage.cache_max_bytes"] = "cache size ceiling must be positive"
	}
	return errs
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
