// Package config provides configuration loading and management for the
// planning CLI. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/beamform"
	"github.com/OpenwaterHealth/opw-neuromod-sw-sub000/pkg/geom"
)

// Config represents the planning configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for the
		// data-parallel loops (ray integration, volume resampling).
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Transducer describes the planar grid array the CLI synthesizes.
	Transducer struct {
		ID        string    `yaml:"id"`
		Rows      int       `yaml:"rows"`
		Cols      int       `yaml:"cols"`
		Pitch     float64   `yaml:"pitch"`
		Width     float64   `yaml:"width"`
		Length    float64   `yaml:"length"`
		Frequency float64   `yaml:"frequency"`
		Units     geom.Unit `yaml:"units"`
	} `yaml:"transducer"`

	// Target is the nominal focus position.
	Target struct {
		ID       string     `yaml:"id"`
		Position [3]float64 `yaml:"position"`
		Units    geom.Unit  `yaml:"units"`
	} `yaml:"target"`

	// Pattern selects and parameterizes the focal pattern.
	Pattern beamform.PatternSpec `yaml:"pattern"`

	// Delay selects and parameterizes the delay method.
	Delay beamform.DelaySpec `yaml:"delay"`

	// Apod selects the apodization method.
	Apod beamform.ApodSpec `yaml:"apod"`
}

// DefaultConfig returns a configuration with default values: a 4x4, 5 mm
// pitch array at 400 kHz aimed 50 mm deep, single-point pattern, direct
// delays at 1500 m/s, uniform apodization.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()

	cfg.Transducer.ID = "array"
	cfg.Transducer.Rows = 4
	cfg.Transducer.Cols = 4
	cfg.Transducer.Pitch = 5
	cfg.Transducer.Width = 4.5
	cfg.Transducer.Length = 4.5
	cfg.Transducer.Frequency = 400e3
	cfg.Transducer.Units = geom.Millimeters

	cfg.Target.ID = "target"
	cfg.Target.Position = [3]float64{0, 0, 50}
	cfg.Target.Units = geom.Millimeters

	cfg.Pattern = beamform.PatternSpec{Pattern: beamform.SinglePoint{}}
	cfg.Delay = beamform.DelaySpec{Method: beamform.Direct{C0: 1500}}
	cfg.Apod = beamform.ApodSpec{Method: beamform.Uniform{}}

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
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

// SaveConfig saves the configuration to a YAML file.
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

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
