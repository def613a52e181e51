package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Error handling modes for a sync run.
const (
	ErrorHandlingStrict  = "strict"
	ErrorHandlingLenient = "lenient"
	ErrorHandlingSkip    = "skip"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	API        APIConfig        `yaml:"api"`
	Sync       SyncConfig       `yaml:"sync"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	LogFile    string           `yaml:"log_file"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys and the notification policy for sync outcomes.
type PushConfig struct {
	PublicKey       string `yaml:"vapid_public_key"`
	PrivateKey      string `yaml:"vapid_private_key"`
	Subject         string `yaml:"subject"`
	TTL             int    `yaml:"ttl"`
	NotifyOnError   bool   `yaml:"notify_on_error"`
	NotifyOnSuccess bool   `yaml:"notify_on_success"`
}

// Enabled reports whether push notifications can be sent at all.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// APIConfig holds the upstream monitoring API settings.
type APIConfig struct {
	Key                  string        `yaml:"key"`
	BaseURL              string        `yaml:"base_url"`
	TimeoutSeconds       int           `yaml:"timeout_seconds"`
	Timeout              time.Duration `yaml:"-"`
	MaxConcurrent        int           `yaml:"max_concurrent"`
	DailyLimit           int           `yaml:"daily_limit"`
	RequestsPerSecond    float64       `yaml:"requests_per_second"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryDelaySeconds    float64       `yaml:"retry_delay_seconds"`
	RetryDelay           time.Duration `yaml:"-"`
	MaxRetryDelaySeconds float64       `yaml:"max_retry_delay_seconds"`
	MaxRetryDelay        time.Duration `yaml:"-"`
	HTTPProxy            string        `yaml:"http_proxy"`
	SiteCacheTTLSeconds  int           `yaml:"site_cache_ttl_seconds"`
	SiteCacheTTL         time.Duration `yaml:"-"`
}

// SyncConfig controls the fetch windows and failure policy of sync runs.
type SyncConfig struct {
	SiteIDs               []int64       `yaml:"site_ids"`
	EnergyLookbackDays    int           `yaml:"energy_lookback_days"`
	PowerLookbackDays     int           `yaml:"power_lookback_days"`
	TelemetryLookbackDays int           `yaml:"telemetry_lookback_days"`
	OverlapMinutes        int           `yaml:"overlap_minutes"`
	Overlap               time.Duration `yaml:"-"`
	ErrorHandling         string        `yaml:"error_handling"`
}

// SchedulerConfig holds the configuration for periodic syncs in serve mode.
type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Schedule    string `yaml:"schedule"`
	FullOnStart bool   `yaml:"full_on_start"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	Driver                 string `yaml:"driver"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
	LogLevel               string `yaml:"log_level"`
}

// Load reads the configuration from the given path and applies SEH_* environment overrides.
// A missing file is not an error when the environment carries the required settings.
func Load(path string) (*Config, error) {
	cfg := Config{API: APIConfig{MaxRetries: 3}}

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("config file %s not found; using defaults and environment", path)
	default:
		return nil, err
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SEH_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("SEH_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("SEH_DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SEH_ERROR_HANDLING"); v != "" {
		cfg.Sync.ErrorHandling = v
	}
	if v := os.Getenv("SEH_LOG_LEVEL"); v != "" {
		cfg.Database.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SEH_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("SEH_SITE_IDS"); v != "" {
		ids, err := ParseSiteIDs(v)
		if err != nil {
			return fmt.Errorf("%w: SEH_SITE_IDS: %v", ErrInvalid, err)
		}
		cfg.Sync.SiteIDs = ids
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://monitoringapi.solaredge.com"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	cfg.API.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second

	if cfg.API.MaxConcurrent <= 0 {
		cfg.API.MaxConcurrent = 3
	}
	if cfg.API.DailyLimit <= 0 {
		cfg.API.DailyLimit = 300
	}
	if cfg.API.MaxRetries < 0 {
		log.Printf("api.max_retries is negative; defaulting to 0")
		cfg.API.MaxRetries = 0
	}
	if cfg.API.RetryDelaySeconds <= 0 {
		cfg.API.RetryDelaySeconds = 2
	}
	cfg.API.RetryDelay = seconds(cfg.API.RetryDelaySeconds)
	if cfg.API.MaxRetryDelaySeconds <= 0 {
		cfg.API.MaxRetryDelaySeconds = 60
	}
	cfg.API.MaxRetryDelay = seconds(cfg.API.MaxRetryDelaySeconds)
	if cfg.API.SiteCacheTTLSeconds <= 0 {
		cfg.API.SiteCacheTTLSeconds = 300
	}
	cfg.API.SiteCacheTTL = time.Duration(cfg.API.SiteCacheTTLSeconds) * time.Second

	if cfg.Sync.EnergyLookbackDays <= 0 {
		cfg.Sync.EnergyLookbackDays = 365
	}
	if cfg.Sync.PowerLookbackDays <= 0 {
		cfg.Sync.PowerLookbackDays = 7
	}
	if cfg.Sync.TelemetryLookbackDays <= 0 {
		cfg.Sync.TelemetryLookbackDays = 1
	}
	if cfg.Sync.OverlapMinutes <= 0 {
		cfg.Sync.OverlapMinutes = 15
	}
	cfg.Sync.Overlap = time.Duration(cfg.Sync.OverlapMinutes) * time.Minute
	if cfg.Sync.ErrorHandling == "" {
		cfg.Sync.ErrorHandling = ErrorHandlingLenient
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "sqlite:./seh.db"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Scheduler.Schedule == "" {
		cfg.Scheduler.Schedule = "@every 1h"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}

// Validate checks the settings a sync run cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return fmt.Errorf("%w: api.key (or SEH_API_KEY) is required", ErrInvalid)
	}
	switch c.Sync.ErrorHandling {
	case ErrorHandlingStrict, ErrorHandlingLenient, ErrorHandlingSkip:
	default:
		return fmt.Errorf("%w: sync.error_handling must be strict, lenient or skip, got %q", ErrInvalid, c.Sync.ErrorHandling)
	}
	if c.API.DailyLimit <= 0 || c.API.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: api.daily_limit and api.max_concurrent must be positive", ErrInvalid)
	}
	return nil
}

// ParseSiteIDs parses a comma separated list of site ids such as "123, 456".
func ParseSiteIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid site id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
