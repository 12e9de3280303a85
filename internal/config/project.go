package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/QTest-hq/qscan/internal/analysis"
)

// ProjectConfigFiles are the names looked up in the scan root, in order
var ProjectConfigFiles = []string{".qscan.yaml", ".qscan.yml"}

// ProjectConfig represents a .qscan.yaml file in a repository
type ProjectConfig struct {
	Version string `yaml:"version"`

	// Path fragments skipped in addition to the built-in exclusions
	Exclude []string `yaml:"exclude,omitempty"`

	// Parallel file analyses, 0 means one per CPU
	Workers int `yaml:"workers,omitempty"`

	// Report settings
	MinSeverity string `yaml:"min_severity,omitempty"`
	Output      string `yaml:"output,omitempty"`

	// Issue limits. Keys left out keep the defaults, an explicit 0 is kept.
	Thresholds analysis.Thresholds `yaml:"thresholds,omitempty"`
}

// DefaultProjectConfig returns sensible defaults. Workers, MinSeverity and
// Output stay empty so environment settings can fill them.
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Version:    "1.0",
		Thresholds: analysis.DefaultThresholds(),
	}
}

// LoadProjectConfig loads a .qscan.yaml from the given directory. A file
// path loads the config next to it. Defaults are returned when no config
// exists.
func LoadProjectConfig(root string) (*ProjectConfig, error) {
	dir := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		dir = filepath.Dir(root)
	}

	cfg := DefaultProjectConfig()
	for _, name := range ProjectConfigFiles {
		configPath := filepath.Join(dir, name)

		data, err := os.ReadFile(configPath)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", configPath, err)
		}
		return cfg, nil
	}

	return cfg, nil
}

// Validate checks the values a config file may set
func (c *ProjectConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MinSeverity != "" {
		if _, err := analysis.ParseSeverity(c.MinSeverity); err != nil {
			return fmt.Errorf("min_severity: %w", err)
		}
	}
	if c.Thresholds.CyclomaticComplexity < 0 || c.Thresholds.NestingDepth < 0 ||
		c.Thresholds.FunctionLines < 0 || c.Thresholds.FunctionDocCoverage < 0 ||
		c.Thresholds.ClassDocCoverage < 0 {
		return errors.New("thresholds must not be negative")
	}
	return nil
}

// Merge applies overrides from another config (e.g., CLI flags)
func (c *ProjectConfig) Merge(other *ProjectConfig) {
	if other == nil {
		return
	}

	if len(other.Exclude) > 0 {
		c.Exclude = append(c.Exclude, other.Exclude...)
	}

	if other.Workers != 0 {
		c.Workers = other.Workers
	}

	if other.MinSeverity != "" {
		c.MinSeverity = other.MinSeverity
	}

	if other.Output != "" {
		c.Output = other.Output
	}

	if other.Thresholds.CyclomaticComplexity != 0 {
		c.Thresholds.CyclomaticComplexity = other.Thresholds.CyclomaticComplexity
	}

	if other.Thresholds.NestingDepth != 0 {
		c.Thresholds.NestingDepth = other.Thresholds.NestingDepth
	}

	if other.Thresholds.FunctionLines != 0 {
		c.Thresholds.FunctionLines = other.Thresholds.FunctionLines
	}

	if other.Thresholds.FunctionDocCoverage != 0 {
		c.Thresholds.FunctionDocCoverage = other.Thresholds.FunctionDocCoverage
	}

	if other.Thresholds.ClassDocCoverage != 0 {
		c.Thresholds.ClassDocCoverage = other.Thresholds.ClassDocCoverage
	}
}
