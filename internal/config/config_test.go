package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REDIS_HOST", "REDIS_PORT", "REDIS_USERNAME", "REDIS_PASSWORD", "REDIS_DECODE_RESPONSES",
		"MONGODB_URI", "MONGODB_DATABASE", "MONGODB_COLLECTION",
		"CSV_PATH", "BATCH_SIZE", "AGGREGATOR_BATCH_SIZE", "RETENTION_DAYS", "HOT_DAYS",
		"ARCHIVE_INTERVAL", "LOG_LEVEL", "HTTP_ADDR", "METRICS_ADDR",
	} {
		os.Unsetenv(k)
	}
}

func TestLoadMissingRequiredVariable(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing REDIS_HOST")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	os.Setenv("MONGODB_DATABASE", "txdb")
	os.Setenv("MONGODB_COLLECTION", "archive")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("expected default redis port 6379, got %d", cfg.Redis.Port)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("expected default batch size 10, got %d", cfg.BatchSize)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("expected default retention 7, got %d", cfg.RetentionDays)
	}
	if cfg.ArchiveInterval != 10*time.Second {
		t.Errorf("expected default archive interval 10s, got %v", cfg.ArchiveInterval)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("unexpected addr: %s", cfg.Redis.Addr())
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	clearEnv(t)
	os.Setenv("REDIS_HOST", "redis-1")
	os.Setenv("REDIS_PORT", "6380")
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	os.Setenv("MONGODB_DATABASE", "txdb")
	os.Setenv("MONGODB_COLLECTION", "archive")
	os.Setenv("RETENTION_DAYS", "3")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.Port != 6380 {
		t.Errorf("expected overridden port 6380, got %d", cfg.Redis.Port)
	}
	if cfg.RetentionDays != 3 {
		t.Errorf("expected overridden retention 3, got %d", cfg.RetentionDays)
	}
}
