package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.Backend != "keyword" {
		t.Errorf("backend = %q, want keyword", cfg.Index.Backend)
	}
	if cfg.Filter.MaxInsights != 5 {
		t.Errorf("max insights = %d, want 5", cfg.Filter.MaxInsights)
	}
	if cfg.Federation.QualityThreshold != 0.7 {
		t.Errorf("federation threshold = %f, want 0.7", cfg.Federation.QualityThreshold)
	}
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"index": {"backend": "sqlite"}, "filter": {"min_quality": 0.5, "max_insights": 3}}`
	if err := os.WriteFile(path, []byte(raw), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Index.Backend)
	}
	if cfg.Filter.MinQuality != 0.5 {
		t.Errorf("min quality = %f, want 0.5", cfg.Filter.MinQuality)
	}
	// Untouched sections keep defaults.
	if cfg.Storage.Namespace != "default" {
		t.Errorf("namespace = %q, want default", cfg.Storage.Namespace)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"index": {"backend": "sqlite"}}`), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("HIVEMEM_INDEX_BACKEND", "chromem")
	t.Setenv("HIVEMEM_STORAGE_NAMESPACE", "pipeline42")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Index.Backend != "chromem" {
		t.Errorf("backend = %q, want chromem", cfg.Index.Backend)
	}
	if cfg.Storage.Namespace != "pipeline42" {
		t.Errorf("namespace = %q, want pipeline42", cfg.Storage.Namespace)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Storage.BasePath = "/data/memory"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Storage.BasePath != "/data/memory" {
		t.Errorf("base path = %q, want /data/memory", loaded.Storage.BasePath)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := expandHome("~/x"); got != home+"/x" {
		t.Errorf("expandHome(~/x) = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome(/abs/path) = %q", got)
	}
}
