// Package config provides configuration loading and management for the
// recotwix command line tools. It handles loading configuration from YAML
// files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the tool configuration loaded from YAML
type Config struct {
	// Export parameters for NIfTI output
	Export struct {
		// OutputDir is the directory where NIfTI volumes are written
		OutputDir string `yaml:"outputDir"`

		// Compress selects gzip-compressed .nii.gz output
		Compress bool `yaml:"compress"`
	} `yaml:"export"`

	// Coverage parameters for slice-image rendering
	Coverage struct {
		// GridSize is the rasterization grid size along the largest extent
		GridSize int `yaml:"gridSize"`

		// OutputDir is the directory where coverage slice images are written
		OutputDir string `yaml:"outputDir"`

		// Axes lists the axes to render slice sequences for
		Axes []string `yaml:"axes"`
	} `yaml:"coverage"`

	// Verbose controls the level of logging output
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Export.OutputDir = "volumes"
	cfg.Export.Compress = true

	cfg.Coverage.GridSize = 96
	cfg.Coverage.OutputDir = "coverage"
	cfg.Coverage.Axes = []string{"x", "y", "z"}

	cfg.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

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
