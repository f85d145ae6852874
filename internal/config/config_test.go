package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingPathReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(missing) = %+v, want Default() = %+v", cfg, Default())
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load(\"\") = %+v, want Default()", cfg)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rvjit.yaml")
	yaml := "debug: true\ncode_cache_bytes: 1024\nstats_ui: true\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("Debug not overlaid to true")
	}
	if cfg.CodeCacheBytes != 1024 {
		t.Errorf("CodeCacheBytes = %d, want 1024", cfg.CodeCacheBytes)
	}
	if !cfg.StatsUI {
		t.Error("StatsUI not overlaid to true")
	}
	// Fields not present in the YAML keep their defaults.
	if cfg.MaxBlockLen != Default().MaxBlockLen {
		t.Errorf("MaxBlockLen = %d, want default %d", cfg.MaxBlockLen, Default().MaxBlockLen)
	}
}

func TestAllocatorConfigProjection(t *testing.T) {
	cfg := Default()
	ac := cfg.AllocatorConfig()
	if ac.MaxBlockLen != cfg.MaxBlockLen {
		t.Errorf("AllocatorConfig().MaxBlockLen = %d, want %d", ac.MaxBlockLen, cfg.MaxBlockLen)
	}
	if ac.TraceLinkEnabled != cfg.TraceLinkEnabled || ac.StubsEnabled != cfg.StubsEnabled {
		t.Error("AllocatorConfig() did not carry through TraceLinkEnabled/StubsEnabled")
	}
}
