// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults used when neither a file nor the environment sets a value.
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	// DefaultWorkerPoolSize workers drain a backlog of up to
	// DefaultWorkerPoolQueueSize jobs.
	DefaultWorkerPoolSize      = 4
	DefaultWorkerPoolQueueSize = 64

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28
)

// Config is the root configuration structure.
type Config struct {
	App        AppConfig        `koanf:"app"         validate:"required"`
	Server     ServerConfig     `koanf:"server"      validate:"required"`
	Log        LogConfig        `koanf:"log"         validate:"required"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Scope      ScopeConfig      `koanf:"scope"       validate:"required"`
	WorkerPool WorkerPoolConfig `koanf:"worker_pool" validate:"required"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"       validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"   validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"    validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
	Insecure     bool    `koanf:"insecure"`
}

// ScopeConfig contains unit-of-work isolation settings.
type ScopeConfig struct {
	// UserHeader and SessionHeader name the inbound identity headers set by
	// the gateway.
	UserHeader    string `koanf:"user_header"    validate:"required"`
	SessionHeader string `koanf:"session_header" validate:"required,nefield=UserHeader"`

	// CounterStrategy selects how per-unit order counters are obtained.
	CounterStrategy string `koanf:"counter_strategy" validate:"required,oneof=fresh pooled"`

	// WorkerLocal mirrors the execution context onto the serving goroutine
	// for code that cannot take a context.
	WorkerLocal bool `koanf:"worker_local"`
}

// WorkerPoolConfig contains background worker pool settings.
type WorkerPoolConfig struct {
	Size      int `koanf:"size"       validate:"required,min=1,max=1024"`
	QueueSize int `koanf:"queue_size" validate:"min=0,max=65536"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":        "request-scope-service",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/app.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "request-scope-service",
		"telemetry.sampling_rate": 1.0,
		"telemetry.insecure":      false,

		"scope.user_header":      "X-User-ID",
		"scope.session_header":   "X-Session-ID",
		"scope.counter_strategy": "fresh",
		"scope.worker_local":     false,

		"worker_pool.size":       DefaultWorkerPoolSize,
		"worker_pool.queue_size": DefaultWorkerPoolQueueSize,
	}
}

// Load merges, from lowest to highest precedence, the built-in defaults,
// configs/base.yaml, configs/{profile}.yaml and APP_ environment variables.
// Missing files are skipped. The result is not validated; call Validate.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")
	defs := defaults()

	sources := []struct {
		name string
		load func() error
	}{
		{"defaults", func() error { return k.Load(confmap.Provider(defs, "."), nil) }},
		{"base config", func() error { return loadFileIfExists(k, "configs/base.yaml") }},
		{fmt.Sprintf("profile config %q", profile), func() error {
			if profile == "" {
				return nil
			}

			return loadFileIfExists(k, filepath.Join("configs", profile+".yaml"))
		}},
		{"env vars", func() error { return k.Load(env.Provider(envPrefix, ".", envKeyMapper(defs)), nil) }},
	}

	for _, src := range sources {
		if err := src.load(); err != nil {
			return nil, fmt.Errorf("loading %s: %w", src.name, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

const envPrefix = "APP_"

// envKeyMapper maps APP_ variables to config keys. Known keys are matched
// exactly so that multi-word keys survive (APP_WORKER_POOL_QUEUE_SIZE ->
// worker_pool.queue_size); anything else has every underscore turned into a
// dot.
func envKeyMapper(known map[string]any) func(string) string {
	byEnv := make(map[string]string, len(known))
	for key := range known {
		byEnv[strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}

	return func(s string) string {
		name := strings.TrimPrefix(s, envPrefix)
		if key, ok := byEnv[name]; ok {
			return key
		}

		return strings.ReplaceAll(strings.ToLower(name), "_", ".")
	}
}

func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
