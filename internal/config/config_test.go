package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "momentum.db" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "info" || cfg.Limits.Tier != "free" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Guard.Cooldown != 750*time.Millisecond || cfg.Progress.Debounce != 2*time.Second {
		t.Fatalf("unexpected timing defaults: %+v %+v", cfg.Guard, cfg.Progress)
	}
	if cfg.Storage.Redis.Prefix != "momentum:" || cfg.Storage.Redis.PoolSize != 10 {
		t.Fatalf("unexpected redis defaults: %+v", cfg.Storage.Redis)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MOMENTUM_STORAGE_DRIVER", "postgres")
	t.Setenv("MOMENTUM_LIMITS_TIER", "premium")
	t.Setenv("MOMENTUM_GUARD_COOLDOWN", "2s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Fatalf("expected env driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Limits.Tier != "premium" {
		t.Fatalf("expected premium tier, got %s", cfg.Limits.Tier)
	}
	if cfg.Guard.Cooldown != 2*time.Second {
		t.Fatalf("expected 2s cooldown, got %s", cfg.Guard.Cooldown)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MOMENTUM_TEST_DATA_DIR", "/var/lib/momentum")
	body := "storage:\n  driver: fs\n  fsRoot: ${MOMENTUM_TEST_DATA_DIR}/state\nlog:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(dir, "momentum.yaml"), []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "fs" || cfg.Storage.FSRoot != "/var/lib/momentum/state" {
		t.Fatalf("unexpected storage from file: %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level, got %s", cfg.Log.Level)
	}
	if cfg.Limits.Tier != "free" {
		t.Fatalf("defaults should fill keys absent from the file")
	}
}

func TestLoadFromMissingExplicitFile(t *testing.T) {
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit file")
	}
}
