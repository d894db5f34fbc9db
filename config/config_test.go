package config

import "testing"

func TestQueueSizeClamp(t *testing.T) {
	t.Setenv("TASK_QUEUE_SIZE", "10000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.TaskQueueSize != maxQueueSize {
		t.Fatalf("expected queue size %d, got %d", maxQueueSize, cfg.TaskQueueSize)
	}
}

func TestQueueSizeDefaultsRespectWorkers(t *testing.T) {
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("TASK_QUEUE_SIZE", "4")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("expected worker count 8, got %d", cfg.WorkerCount)
	}
	if cfg.TaskQueueSize < cfg.WorkerCount {
		t.Fatalf("queue size should be at least workers, got %d", cfg.TaskQueueSize)
	}
}

func TestHTTPPortDefaultFormatting(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != ":9000" {
		t.Fatalf("expected HTTP_PORT to include colon, got %s", cfg.HTTPPort)
	}
}

func TestAnalyticsEnvOverrides(t *testing.T) {
	t.Setenv("ANALYTICS_REFRESH_INTERVAL_SEC", "60")
	t.Setenv("ANALYTICS_SEED", "7")
	t.Setenv("ANALYTICS_SEED_ON_EMPTY", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Analytics.RefreshIntervalSec != 60 {
		t.Fatalf("refresh interval = %d", cfg.Analytics.RefreshIntervalSec)
	}
	if cfg.Analytics.SeedRNG != 7 {
		t.Fatalf("seed = %d", cfg.Analytics.SeedRNG)
	}
	if cfg.Analytics.SeedOnEmpty {
		t.Fatalf("seed_on_empty should be false")
	}
}

func TestStrictConfigEscalatesBadValues(t *testing.T) {
	t.Setenv("STRICT_CONFIG", "true")
	t.Setenv("ANALYTICS_SEED", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error under strict config")
	}
}
