package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Reconstruction.Resolution != 96 {
		t.Errorf("Expected resolution 96, got %d", cfg.Reconstruction.Resolution)
	}
	if cfg.Reconstruction.IsoLevel != 0.5 {
		t.Errorf("Expected iso level 0.5, got %v", cfg.Reconstruction.IsoLevel)
	}
	if cfg.Reconstruction.StructuringSize != 3 || !cfg.Reconstruction.Regularize {
		t.Error("Expected 3x3x3 regularization to be enabled by default")
	}
	if cfg.Reconstruction.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", cfg.Reconstruction.NumCores)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Output.Format != "stl" {
		t.Errorf("Expected default format stl, got %q", cfg.Output.Format)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Reconstruction.Resolution = 48
	cfg.Masks.Invert = true
	cfg.Output.Format = "ply"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Reconstruction.Resolution != 48 || !loaded.Masks.Invert || loaded.Output.Format != "ply" {
		t.Errorf("Loaded config does not match saved config: %+v", loaded)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("reconstruction:\n  resolution: 32\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Reconstruction.Resolution != 32 {
		t.Errorf("Expected resolution 32, got %d", cfg.Reconstruction.Resolution)
	}
	if cfg.Reconstruction.IsoLevel != 0.5 || cfg.Masks.Threshold != 128 {
		t.Error("Unset fields should keep their defaults")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("reconstruction: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Created config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero resolution", func(c *Config) { c.Reconstruction.Resolution = 0 }},
		{"iso level at one", func(c *Config) { c.Reconstruction.IsoLevel = 1 }},
		{"even structuring size", func(c *Config) { c.Reconstruction.StructuringSize = 4 }},
		{"structuring larger than grid", func(c *Config) {
			c.Reconstruction.Resolution = 2
			c.Reconstruction.StructuringSize = 3
		}},
		{"negative cores", func(c *Config) { c.Reconstruction.NumCores = -1 }},
		{"threshold out of range", func(c *Config) { c.Masks.Threshold = 300 }},
		{"unknown format", func(c *Config) { c.Output.Format = "gltf" }},
		{"unknown log mode", func(c *Config) { c.Output.LogMode = "trace" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Reconstruction.Resolution = 2
	cfg.Reconstruction.Regularize = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("Structuring size is irrelevant without regularization: %v", err)
	}
}
