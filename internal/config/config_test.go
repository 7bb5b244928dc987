package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"OSMRENDER_WORKERS", "OSMRENDER_ICON_PATH", "OSMRENDER_REDIS_ADDR", "OSMRENDER_MIN_ZOOM", "OSMRENDER_MAX_ZOOM", "OSMRENDER_REDIS_TTL", "LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg := FromEnv()
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), cfg.Workers)
	}
	if cfg.MinZoom != 11 || cfg.MaxZoom != 18 {
		t.Errorf("Expected zoom 11-18, got %d-%d", cfg.MinZoom, cfg.MaxZoom)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("Expected no redis, got %q", cfg.RedisAddr)
	}
	if cfg.RedisTTL != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", cfg.RedisTTL)
	}
	if len(cfg.IconPaths) != 0 {
		t.Errorf("Expected no icon paths, got %v", cfg.IconPaths)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected info, got %s", cfg.LogLevel)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	icons := "/usr/share/icons" + string(filepath.ListSeparator) + "/opt/icons"
	t.Setenv("OSMRENDER_WORKERS", "3")
	t.Setenv("OSMRENDER_ICON_PATH", icons)
	t.Setenv("OSMRENDER_CACHE_BYTES", "1024")
	t.Setenv("OSMRENDER_REDIS_ADDR", "localhost:6379")
	t.Setenv("OSMRENDER_REDIS_TTL", "90s")
	t.Setenv("OSMRENDER_MIN_ZOOM", "5")
	t.Setenv("OSMRENDER_MAX_ZOOM", "not-a-number")
	t.Setenv("LOG_FORMAT", "json")

	cfg := FromEnv()
	if cfg.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Workers)
	}
	if len(cfg.IconPaths) != 2 || cfg.IconPaths[1] != "/opt/icons" {
		t.Errorf("Expected 2 icon paths, got %v", cfg.IconPaths)
	}
	if cfg.CacheBytes != 1024 {
		t.Errorf("Expected 1024, got %d", cfg.CacheBytes)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisTTL != 90*time.Second {
		t.Errorf("Expected redis localhost:6379/90s, got %s/%v", cfg.RedisAddr, cfg.RedisTTL)
	}
	if cfg.MinZoom != 5 {
		t.Errorf("Expected min zoom 5, got %d", cfg.MinZoom)
	}
	if cfg.MaxZoom != 18 {
		t.Errorf("Expected malformed max zoom to fall back to 18, got %d", cfg.MaxZoom)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("Expected json, got %s", cfg.LogFormat)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OSMRENDER_LISTEN_ADDR=:9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	t.Setenv("OSMRENDER_LISTEN_ADDR", "")
	os.Unsetenv("OSMRENDER_LISTEN_ADDR")

	cfg := Load()
	if cfg.ListenAddr != ":9090" {
		t.Errorf("Expected :9090 from .env, got %s", cfg.ListenAddr)
	}
}
