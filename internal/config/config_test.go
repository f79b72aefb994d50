package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INKWELL_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8787" {
		t.Fatalf("expected default addr, got %q", cfg.Addr)
	}
	if cfg.ContentDebounce != 2*time.Second || cfg.StructuralDebounce != 50*time.Millisecond {
		t.Fatalf("unexpected debounce defaults: %v / %v", cfg.ContentDebounce, cfg.StructuralDebounce)
	}
	if cfg.MaxBlocks != 1800 || cfg.WarnBlocks != 1500 || cfg.HistoryLimit != 50 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
}

func TestFileThenEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inkwell.yaml")
	body := "addr: \":9000\"\ncontentDebounce: 750ms\nmaxBlocks: 200\nminioUseSSL: true\nredisURL: redis://cache:6379/1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INKWELL_CONFIG", path)
	t.Setenv("INKWELL_MAX_BLOCKS", "300")
	t.Setenv("INKWELL_STRUCTURAL_DEBOUNCE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("expected file addr, got %q", cfg.Addr)
	}
	if cfg.ContentDebounce != 750*time.Millisecond {
		t.Fatalf("expected file debounce, got %v", cfg.ContentDebounce)
	}
	if cfg.MaxBlocks != 300 {
		t.Fatalf("env should win over file, got %d", cfg.MaxBlocks)
	}
	if cfg.StructuralDebounce != time.Second {
		t.Fatalf("expected whole-second env duration, got %v", cfg.StructuralDebounce)
	}
	if !cfg.MinioUseSSL || cfg.RedisURL != "redis://cache:6379/1" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.WarnBlocks != 1500 {
		t.Fatalf("unset keys keep defaults, got %d", cfg.WarnBlocks)
	}
}

func TestBadFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("addr: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INKWELL_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}

	t.Setenv("INKWELL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected read error")
	}
}

func TestMalformedEnvKeepsFallback(t *testing.T) {
	t.Setenv("INKWELL_CONFIG", "")
	t.Setenv("INKWELL_HISTORY_LIMIT", "lots")
	t.Setenv("INKWELL_CONTENT_DEBOUNCE", "soon")
	t.Setenv("MINIO_USE_SSL", "maybe")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HistoryLimit != 50 || cfg.ContentDebounce != 2*time.Second || cfg.MinioUseSSL {
		t.Fatalf("malformed env should be ignored: %+v", cfg)
	}
}
