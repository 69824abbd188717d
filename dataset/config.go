package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Choice selects one of the configured data sources.
type Choice int

const (
	// ChoiceSynthetic is the synthetically generated spectra source.
	ChoiceSynthetic Choice = iota
	// ChoiceHandheld12 is the 12-mineral handheld device source.
	ChoiceHandheld12
	// ChoiceHandheldAll is the full handheld device source.
	ChoiceHandheldAll
)

// Source describes one dataset root: where its train/ and test/ directories
// live plus human-readable naming.
type Source struct {
	Path        string `yaml:"path"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Config is the dataset configuration document. It is an explicit value
// threaded through preparation calls, never process-wide state, so multiple
// preparations with different configurations can coexist.
type Config struct {
	Synthetic   *Source `yaml:"synthetic"`
	Handheld12  *Source `yaml:"handheld_12"`
	HandheldAll *Source `yaml:"handheld_all"`
}

// LoadConfig reads and parses a dataset configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse dataset config %s: %w", path, err)
	}
	return &cfg, nil
}

// Source resolves a dataset choice to its configured source. A missing
// configuration key is reported by name; callers treat it as fatal.
func (c *Config) Source(choice Choice) (*Source, error) {
	var (
		src *Source
		key string
	)
	switch choice {
	case ChoiceSynthetic:
		src, key = c.Synthetic, "synthetic"
	case ChoiceHandheld12:
		src, key = c.Handheld12, "handheld_12"
	case ChoiceHandheldAll:
		src, key = c.HandheldAll, "handheld_all"
	default:
		return nil, fmt.Errorf("dataset: invalid dataset choice %d", int(choice))
	}
	if src == nil {
		return nil, fmt.Errorf("dataset: missing config key %q", key)
	}
	if src.Path == "" {
		return nil, fmt.Errorf("dataset: config key %q has no path", key)
	}
	return src, nil
}
