package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration from the YAML config file and
// environment overrides.
type Config struct {
	HTTPPort      string
	DataDir       string
	WorkDir       string
	DBPath        string
	TaskQueueSize int
	WorkerCount   int
	TaskTimeout   int // seconds
	EnableWatcher bool
	StrictConfig  bool
	Analytics     AnalyticsConfig
}

// AnalyticsConfig captures the recompute and dataset refresh settings.
type AnalyticsConfig struct {
	RefreshIntervalSec int
	SeedOnEmpty        bool
	SeedRNG            int64
	RunHistoryLimit    int
}

type fileConfig struct {
	HTTPPort  string              `yaml:"http_port"`
	DataDir   string              `yaml:"data_dir"`
	WorkDir   string              `yaml:"work_dir"`
	DBPath    string              `yaml:"db_path"`
	Analytics analyticsFileConfig `yaml:"analytics"`
}

type analyticsFileConfig struct {
	RefreshIntervalSec *int   `yaml:"refresh_interval_sec"`
	SeedOnEmpty        *bool  `yaml:"seed_on_empty"`
	SeedRNG            *int64 `yaml:"seed"`
	RunHistoryLimit    *int   `yaml:"run_history_limit"`
}

const (
	defaultPort         = ":8000"
	defaultDataDir      = "data"
	defaultWorkDir      = "runtime"
	defaultDBFile       = "pulse.db"
	minQueueSize        = 1
	defaultQueueSize    = 32
	maxQueueSize        = 256
	defaultWorkerCount  = 1
	maxWorkerCount      = 8
	defaultTaskTimeout  = 30
	defaultRefreshSec   = 300
	defaultRunHistory   = 50
	defaultAnalyticsRNG = 42
)

func defaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		RefreshIntervalSec: defaultRefreshSec,
		SeedOnEmpty:        true,
		SeedRNG:            defaultAnalyticsRNG,
		RunHistoryLimit:    defaultRunHistory,
	}
}

// Load reads configuration from the optional YAML file and environment
// variables, applying sane defaults. With STRICT_CONFIG set, soft failures
// become errors.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TaskQueueSize: defaultQueueSize,
		WorkerCount:   defaultWorkerCount,
		TaskTimeout:   defaultTaskTimeout,
		EnableWatcher: parseBoolEnvDefault("ENABLE_WATCHER", true),
		StrictConfig:  parseBoolEnv("STRICT_CONFIG"),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "config.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil && !errors.Is(fileErr, os.ErrNotExist) {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Printf("config load failed (%s): %v (using defaults)", configPath, fileErr)
	}

	cfg.Analytics = applyAnalyticsOverrides(defaultAnalyticsConfig(), fileCfg.Analytics)

	cfg.DataDir = firstNonEmpty(os.Getenv("DATA_DIR"), fileCfg.DataDir, defaultDataDir)
	cfg.WorkDir = firstNonEmpty(os.Getenv("WORK_DIR"), fileCfg.WorkDir, defaultWorkDir)
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.DBPath = dbPath
	} else if fileCfg.DBPath != "" {
		cfg.DBPath = fileCfg.DBPath
	} else {
		cfg.DBPath = filepath.Join(cfg.WorkDir, defaultDBFile)
	}

	cfg.HTTPPort = firstNonEmpty(os.Getenv("HTTP_PORT"), fileCfg.HTTPPort, defaultPort)
	if legacyPort := os.Getenv("PORT"); legacyPort != "" && cfg.HTTPPort == defaultPort {
		cfg.HTTPPort = legacyPort
	}
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}

	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("invalid WORKER_COUNT=%q, using default %d", v, defaultWorkerCount)
			n = defaultWorkerCount
		}
		if n > maxWorkerCount {
			log.Printf("WORKER_COUNT capped at %d (was %d)", maxWorkerCount, n)
			n = maxWorkerCount
		}
		cfg.WorkerCount = n
	}

	if v := os.Getenv("TASK_QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid TASK_QUEUE_SIZE=%q, using default %d", v, defaultQueueSize)
			n = defaultQueueSize
		}
		if n < minQueueSize {
			log.Printf("TASK_QUEUE_SIZE raised to minimum %d (was %d)", minQueueSize, n)
			n = minQueueSize
		}
		if n > maxQueueSize {
			log.Printf("TASK_QUEUE_SIZE capped at %d (was %d)", maxQueueSize, n)
			n = maxQueueSize
		}
		cfg.TaskQueueSize = n
	}
	if cfg.TaskQueueSize < cfg.WorkerCount {
		cfg.TaskQueueSize = cfg.WorkerCount
	}

	if v := os.Getenv("TASK_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TASK_TIMEOUT_SEC: %w", err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("TASK_TIMEOUT_SEC must be positive")
		}
		cfg.TaskTimeout = n
	}

	if v, ok, err := parseIntEnv("ANALYTICS_REFRESH_INTERVAL_SEC"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid ANALYTICS_REFRESH_INTERVAL_SEC: %w", err)
		}
		log.Printf("invalid ANALYTICS_REFRESH_INTERVAL_SEC: %v (using default)", err)
	} else if ok && v >= 0 {
		cfg.Analytics.RefreshIntervalSec = v
	}
	if v := os.Getenv("ANALYTICS_SEED_ON_EMPTY"); strings.TrimSpace(v) != "" {
		cfg.Analytics.SeedOnEmpty = parseBoolEnv("ANALYTICS_SEED_ON_EMPTY")
	}
	if v, ok, err := parseIntEnv("ANALYTICS_SEED"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid ANALYTICS_SEED: %w", err)
		}
		log.Printf("invalid ANALYTICS_SEED: %v (using default)", err)
	} else if ok {
		cfg.Analytics.SeedRNG = int64(v)
	}
	if v, ok, err := parseIntEnv("ANALYTICS_RUN_HISTORY"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid ANALYTICS_RUN_HISTORY: %w", err)
		}
		log.Printf("invalid ANALYTICS_RUN_HISTORY: %v (using default)", err)
	} else if ok && v > 0 {
		cfg.Analytics.RunHistoryLimit = v
	}

	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyAnalyticsOverrides(base AnalyticsConfig, file analyticsFileConfig) AnalyticsConfig {
	if file.RefreshIntervalSec != nil && *file.RefreshIntervalSec >= 0 {
		base.RefreshIntervalSec = *file.RefreshIntervalSec
	}
	if file.SeedOnEmpty != nil {
		base.SeedOnEmpty = *file.SeedOnEmpty
	}
	if file.SeedRNG != nil {
		base.SeedRNG = *file.SeedRNG
	}
	if file.RunHistoryLimit != nil && *file.RunHistoryLimit > 0 {
		base.RunHistoryLimit = *file.RunHistoryLimit
	}
	return base
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBoolEnv(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func parseBoolEnvDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func parseIntEnv(key string) (int, bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
