// Package config loads engine configuration from a YAML file with a
// CLI-flag overlay, per SPEC_FULL.md's ambient-stack requirement.
//
// Grounded on the teacher's yaml.v3 dependency (used there for its own
// hook/detector configuration file); the shape here is new but the
// unmarshal-then-defaults-then-flags-override pattern follows the same
// idiom.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wraithcore/rvjit/internal/allocator"
)

// Config is the engine's full runtime configuration.
type Config struct {
	Debug bool `yaml:"debug"`

	CodeCacheBytes int `yaml:"code_cache_bytes"`

	MaxBlockLen      int  `yaml:"max_block_len"`
	TraceLinkEnabled bool `yaml:"trace_link_enabled"`
	StubsEnabled     bool `yaml:"stubs_enabled"`

	TraceEnabled bool   `yaml:"trace_enabled"`
	TraceOutput  string `yaml:"trace_output"` // gzip CSV path, per internal/tracelog

	ScriptPath string `yaml:"script_path"` // optional goja instrumentation script, internal/script

	StatsUI bool `yaml:"stats_ui"` // launch internal/ui/statsview while running
}

// Default returns the base design's documented defaults.
func Default() Config {
	ac := allocator.DefaultConfig()
	return Config{
		Debug:            false,
		CodeCacheBytes:   4 * 1024 * 1024,
		MaxBlockLen:      ac.MaxBlockLen,
		TraceLinkEnabled: ac.TraceLinkEnabled,
		StubsEnabled:     ac.StubsEnabled,
		TraceEnabled:     false,
		StatsUI:          false,
	}
}

// Load reads a YAML config file, applying it over Default(). A missing
// path is not an error; Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// AllocatorConfig projects the allocator-relevant subset of Config into
// allocator.Config.
func (c Config) AllocatorConfig() allocator.Config {
	return allocator.Config{
		MaxBlockLen:      c.MaxBlockLen,
		TraceLinkEnabled: c.TraceLinkEnabled,
		StubsEnabled:     c.StubsEnabled,
	}
}
