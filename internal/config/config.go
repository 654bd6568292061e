package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	OutputDir   string `yaml:"output_dir"`
	Concurrency int    `yaml:"concurrency"`

	// Scene segmentation settings
	Segmentation SegmentationConfig `yaml:"segmentation"`

	// Field fusion settings
	Fusion FusionConfig `yaml:"fusion"`

	// Schema validation settings
	Schema SchemaConfig `yaml:"schema"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`
}

type SegmentationConfig struct {
	// Threshold is the Bhattacharyya distance above which a scene
	// boundary is declared, in [0,1].
	Threshold        float64 `yaml:"threshold"`
	MinSceneDuration float64 `yaml:"min_scene_duration_sec"`
	// SampleFPS controls how many frames per second are extracted for
	// histogram comparison. 0 means the source frame rate.
	SampleFPS float64 `yaml:"sample_fps"`
}

type FusionConfig struct {
	// DefaultConfidence is assigned to contributions that carry no
	// explicit confidence, so any explicitly-confident contributor
	// outranks them.
	DefaultConfidence float64 `yaml:"default_confidence"`
}

type SchemaConfig struct {
	Path   string `yaml:"path"`
	Strict bool   `yaml:"strict"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	Threads    int    `yaml:"threads"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// SCHEMA_STRICT mirrors the switch the analysis fleet already uses.
	switch os.Getenv("SCHEMA_STRICT") {
	case "1", "true", "yes":
		cfg.Schema.Strict = true
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:     "./work",
		OutputDir:   "./output_json",
		Concurrency: 4,
		Segmentation: SegmentationConfig{
			Threshold:        0.30,
			MinSceneDuration: 2.0,
			SampleFPS:        0,
		},
		Fusion: FusionConfig{
			DefaultConfidence: 0.5,
		},
		Schema: SchemaConfig{
			Path:   "./schema/scene_schema.yaml",
			Strict: false,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			Threads:    0,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".movieindex", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
