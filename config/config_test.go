package config

import (
	"path/filepath"
	"testing"
	"time"
)

func setTestPaths(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DB_PATH", filepath.Join(dir, "data", "test.db"))
}

func TestLoadDefaults(t *testing.T) {
	setTestPaths(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("server port = %q, want 8080", cfg.ServerPort)
	}
	if cfg.Processing.ChunkSeconds != 1200 {
		t.Errorf("chunk seconds = %d, want 1200", cfg.Processing.ChunkSeconds)
	}
	if cfg.Processing.LongVideoSeconds != 2400 {
		t.Errorf("long video threshold = %d, want 2400", cfg.Processing.LongVideoSeconds)
	}
	if cfg.Queue.Workers != 1 {
		t.Errorf("queue workers = %d, want 1", cfg.Queue.Workers)
	}
	if len(cfg.Models.VideoModels) == 0 || len(cfg.Models.TextModels) == 0 {
		t.Error("default model hierarchy should not be empty")
	}
	if cfg.Middleware.EnableRateLimit {
		t.Error("rate limiting should be off outside production")
	}
}

func TestLoadOverrides(t *testing.T) {
	setTestPaths(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CHUNK_SECONDS", "600")
	t.Setenv("LONG_VIDEO_SECONDS", "1800")
	t.Setenv("VIDEO_MODELS", "gemini-exp-1206,gemini-2.0-flash")
	t.Setenv("QUEUE_ITEM_DELAY", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("server port = %q, want 9090", cfg.ServerPort)
	}
	if cfg.Processing.ChunkSeconds != 600 {
		t.Errorf("chunk seconds = %d, want 600", cfg.Processing.ChunkSeconds)
	}
	if len(cfg.Models.VideoModels) != 2 || cfg.Models.VideoModels[0] != "gemini-exp-1206" {
		t.Errorf("video models = %v", cfg.Models.VideoModels)
	}
	if cfg.Queue.ItemDelay != 500*time.Millisecond {
		t.Errorf("item delay = %v, want 500ms", cfg.Queue.ItemDelay)
	}
}

func TestProductionMiddlewarePreset(t *testing.T) {
	setTestPaths(t)
	t.Setenv("ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !cfg.Middleware.EnableRateLimit || !cfg.Middleware.EnableCompress {
		t.Error("production preset should enable the full middleware chain")
	}
}

func TestValidateRejectsBadProcessingConfig(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
	}{
		{name: "zero chunk width", env: map[string]string{"CHUNK_SECONDS": "0"}},
		{name: "threshold below chunk width", env: map[string]string{
			"CHUNK_SECONDS":      "1200",
			"LONG_VIDEO_SECONDS": "600",
		}},
		{name: "no workers", env: map[string]string{"QUEUE_WORKERS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestPaths(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
