// Package config provides configuration loading and management for silhouettecarve.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Reconstruction parameters
	Reconstruction struct {
		// Resolution is the number of voxels along each axis of the grid
		Resolution int `yaml:"resolution"`

		// IsoLevel is the field value the surface is extracted at
		IsoLevel float64 `yaml:"isoLevel"`

		// StructuringSize is the side of the cubic morphology neighbourhood
		StructuringSize int `yaml:"structuringSize"`

		// Regularize enables closing followed by opening of the carved grid
		Regularize bool `yaml:"regularize"`

		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`
	} `yaml:"reconstruction"`

	// Mask decoding parameters
	Masks struct {
		// Threshold is the gray level at or above which a pixel is object
		Threshold int `yaml:"threshold"`

		// Invert treats dark pixels as object
		Invert bool `yaml:"invert"`

		// Smooth scales mask images with bilinear filtering
		Smooth bool `yaml:"smooth"`
	} `yaml:"masks"`

	// Output parameters
	Output struct {
		// Format is the mesh file format: stl, ply, obj, off or points
		Format string `yaml:"format"`

		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary results are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// ExtractSlices saves slices of the final grid along every axis
		ExtractSlices bool `yaml:"extractSlices"`

		// SlicesDir is where extracted slices are written
		SlicesDir string `yaml:"slicesDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// LogMode selects "release" (JSON) or "debug" (console) logging
		LogMode string `yaml:"logMode"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Reconstruction.Resolution = 96
	cfg.Reconstruction.IsoLevel = 0.5
	cfg.Reconstruction.StructuringSize = 3
	cfg.Reconstruction.Regularize = true
	cfg.Reconstruction.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Masks.Threshold = 128
	cfg.Masks.Invert = false
	cfg.Masks.Smooth = true

	cfg.Output.Format = "stl"
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.ExtractSlices = false
	cfg.Output.SlicesDir = "reconstructed_slices"
	cfg.Output.Verbose = true
	cfg.Output.LogMode = "debug"

	return cfg
}

// Validate checks that the configuration describes a runnable reconstruction
func (c *Config) Validate() error {
	r := c.Reconstruction
	if r.Resolution < 1 {
		return fmt.Errorf("reconstruction.resolution must be positive, got %d", r.Resolution)
	}
	if r.IsoLevel <= 0 || r.IsoLevel >= 1 {
		return fmt.Errorf("reconstruction.isoLevel must lie in (0, 1), got %v", r.IsoLevel)
	}
	if r.StructuringSize < 1 || r.StructuringSize%2 == 0 {
		return fmt.Errorf("reconstruction.structuringSize must be odd and positive, got %d", r.StructuringSize)
	}
	if r.Regularize && r.StructuringSize > r.Resolution {
		return fmt.Errorf("reconstruction.structuringSize %d exceeds resolution %d", r.StructuringSize, r.Resolution)
	}
	if r.NumCores < 0 {
		return fmt.Errorf("reconstruction.numCores must not be negative, got %d", r.NumCores)
	}
	if c.Masks.Threshold < 0 || c.Masks.Threshold > 255 {
		return fmt.Errorf("masks.threshold must lie in [0, 255], got %d", c.Masks.Threshold)
	}
	switch c.Output.Format {
	case "stl", "ply", "obj", "off", "points":
	default:
		return fmt.Errorf("output.format %q is not one of stl, ply, obj, off, points", c.Output.Format)
	}
	switch c.Output.LogMode {
	case "release", "debug":
	default:
		return fmt.Errorf("output.logMode %q is not one of release, debug", c.Output.LogMode)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
