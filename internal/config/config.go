// Package config resolves gateway configuration with precedence
// environment > YAML file > built-in default, mirroring the layering
// rule described in SPEC_FULL.md §A.3.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in SPEC_FULL.md §A.3.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	RateLimitWindow    time.Duration `yaml:"-"`
	RateLimitWindowSec int           `yaml:"rate_limit_window_seconds"`
	RateLimitMaxPerWin int           `yaml:"rate_limit_max_requests_per_window"`

	QueueMaxSize    int `yaml:"session_queue_maxsize"`
	QueueWorkers    int `yaml:"session_queue_worker_count"`

	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitResetTimeout     time.Duration `yaml:"-"`
	CircuitResetTimeoutSec  int           `yaml:"circuit_reset_timeout_seconds"`
	CircuitHalfOpenTrials   int           `yaml:"circuit_half_open_max_trials"`

	ProviderChunkTimeout time.Duration `yaml:"-"`
	ProviderChunkTimeoutMs int         `yaml:"provider_chunk_timeout_ms"`
	ProviderMaxRetries   int           `yaml:"provider_max_retries"`

	SessionRetentionTTL        time.Duration `yaml:"-"`
	SessionRetentionTTLSec     int           `yaml:"session_retention_ttl_seconds"`
	SessionRetentionMaxRecords int           `yaml:"session_retention_max_records"`

	MockToneEnabled bool `yaml:"provider_mock_tone_enabled"`
	RealEnabled     bool `yaml:"provider_real_enabled"`

	VoiceCrossValidateProvider bool `yaml:"voice_cross_validate_provider"`

	LogLevel string `yaml:"log_level"`

	ShutdownTimeout    time.Duration `yaml:"-"`
	ShutdownTimeoutSec int           `yaml:"shutdown_timeout_seconds"`
}

// Default returns the built-in defaults from SPEC_FULL.md §A.3.
func Default() Config {
	return Config{
		ListenAddr:                 ":8080",
		RateLimitWindowSec:         60,
		RateLimitMaxPerWin:         50,
		QueueMaxSize:               100,
		QueueWorkers:               8,
		CircuitFailureThreshold:    3,
		CircuitResetTimeoutSec:     30,
		CircuitHalfOpenTrials:      3,
		ProviderChunkTimeoutMs:     2000,
		ProviderMaxRetries:         3,
		SessionRetentionTTLSec:     300,
		SessionRetentionMaxRecords: 10000,
		MockToneEnabled:            true,
		RealEnabled:                false,
		VoiceCrossValidateProvider: false,
		LogLevel:                   "info",
		ShutdownTimeoutSec:         15,
	}
}

// Load resolves a Config from an optional YAML file path, then overlays
// environment variables (environment always wins), then derives the
// time.Duration mirrors of the *_seconds/_ms integer fields.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	cfg.ListenAddr = ParseString("TTSGW_LISTEN_ADDR", cfg.ListenAddr)
	cfg.RateLimitWindowSec = ParseInt("RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimitWindowSec)
	cfg.RateLimitMaxPerWin = ParseInt("RATE_LIMIT_MAX_REQUESTS_PER_WINDOW", cfg.RateLimitMaxPerWin)
	cfg.QueueMaxSize = ParseInt("SESSION_QUEUE_MAXSIZE", cfg.QueueMaxSize)
	cfg.QueueWorkers = ParseInt("SESSION_QUEUE_WORKER_COUNT", cfg.QueueWorkers)
	cfg.CircuitFailureThreshold = ParseInt("CIRCUIT_FAILURE_THRESHOLD", cfg.CircuitFailureThreshold)
	cfg.CircuitResetTimeoutSec = ParseInt("CIRCUIT_RESET_TIMEOUT_SECONDS", cfg.CircuitResetTimeoutSec)
	cfg.CircuitHalfOpenTrials = ParseInt("CIRCUIT_HALF_OPEN_MAX_TRIALS", cfg.CircuitHalfOpenTrials)
	cfg.ProviderChunkTimeoutMs = ParseInt("PROVIDER_CHUNK_TIMEOUT_MS", cfg.ProviderChunkTimeoutMs)
	cfg.ProviderMaxRetries = ParseInt("PROVIDER_MAX_RETRIES", cfg.ProviderMaxRetries)
	cfg.SessionRetentionTTLSec = ParseInt("SESSION_RETENTION_TTL_SECONDS", cfg.SessionRetentionTTLSec)
	cfg.SessionRetentionMaxRecords = ParseInt("SESSION_RETENTION_MAX_RECORDS", cfg.SessionRetentionMaxRecords)
	cfg.MockToneEnabled = ParseBool("PROVIDER_MOCK_TONE_ENABLED", cfg.MockToneEnabled)
	cfg.RealEnabled = ParseBool("PROVIDER_REAL_ENABLED", cfg.RealEnabled)
	cfg.VoiceCrossValidateProvider = ParseBool("VOICE_CROSS_VALIDATE_PROVIDER", cfg.VoiceCrossValidateProvider)
	cfg.LogLevel = ParseString("LOG_LEVEL", cfg.LogLevel)
	cfg.ShutdownTimeoutSec = ParseInt("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeoutSec)

	cfg.RateLimitWindow = time.Duration(cfg.RateLimitWindowSec) * time.Second
	cfg.CircuitResetTimeout = time.Duration(cfg.CircuitResetTimeoutSec) * time.Second
	cfg.ProviderChunkTimeout = time.Duration(cfg.ProviderChunkTimeoutMs) * time.Millisecond
	cfg.SessionRetentionTTL = time.Duration(cfg.SessionRetentionTTLSec) * time.Second
	cfg.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutSec) * time.Second

	return cfg, nil
}
