package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Storage    StorageConfig    `json:"storage"`
	Index      IndexConfig      `json:"index"`
	Filter     FilterConfig     `json:"filter"`
	Federation FederationConfig `json:"federation"`
}

type StorageConfig struct {
	// BasePath roots every store file the process writes.
	BasePath string `json:"base_path" env:"HIVEMEM_STORAGE_BASE_PATH"`
	// Namespace isolates one pipeline's pool from another sharing BasePath.
	Namespace string `json:"namespace" env:"HIVEMEM_STORAGE_NAMESPACE"`
}

type IndexConfig struct {
	// Backend selects the similarity index: keyword, sqlite or chromem.
	Backend string `json:"backend" env:"HIVEMEM_INDEX_BACKEND"`
	// EmbeddingModel names the local embedder the chromem backend uses.
	EmbeddingModel string `json:"embedding_model" env:"HIVEMEM_INDEX_EMBEDDING_MODEL"`
	// Persist makes the chromem backend durable instead of in-memory.
	Persist bool `json:"persist" env:"HIVEMEM_INDEX_PERSIST"`
}

type FilterConfig struct {
	MinQuality  float64 `json:"min_quality" env:"HIVEMEM_FILTER_MIN_QUALITY"`
	MaxInsights int     `json:"max_insights" env:"HIVEMEM_FILTER_MAX_INSIGHTS"`
}

type FederationConfig struct {
	Dir              string  `json:"dir" env:"HIVEMEM_FEDERATION_DIR"`
	QualityThreshold float64 `json:"quality_threshold" env:"HIVEMEM_FEDERATION_QUALITY_THRESHOLD"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			BasePath:  "~/.hivemem",
			Namespace: "default",
		},
		Index: IndexConfig{
			Backend:        "keyword",
			EmbeddingModel: "hivemem-chargram-384-v1",
			Persist:        false,
		},
		Filter: FilterConfig{
			MinQuality:  0.2,
			MaxInsights: 5,
		},
		Federation: FederationConfig{
			Dir:              "~/.hivemem/federation",
			QualityThreshold: 0.7,
		},
	}
}

// LoadConfig reads the JSON config at path, layered over defaults, with
// HIVEMEM_* environment variables taking final precedence. A missing file is
// not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// StoragePath returns the base path with a leading ~ expanded.
func (c *Config) StoragePath() string {
	return expandHome(c.Storage.BasePath)
}

// FederationPath returns the federation directory with a leading ~ expanded.
func (c *Config) FederationPath() string {
	return expandHome(c.Federation.Dir)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
