package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in any unspecified fields with sensible defaults,
// following the teacher's "zero values get replaced, explicit values
// are preserved" strategy.
func ApplyDefaults(cfg *Config) {
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	applyReconnectBackoffDefaults(&cfg.ReconnectBackoff)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyProfilingDefaults(&cfg.Profiling)
}

func applyReconnectBackoffDefaults(cfg *ReconnectBackoffConfig) {
	if cfg.Base == 0 {
		cfg.Base = 100 * time.Millisecond
	}
	if cfg.Cap == 0 {
		cfg.Cap = 8 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "zkgo"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "dev"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:9090"
	}
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "inuse_objects"}
	}
}

// GetDefaultConfig returns a Config populated entirely with defaults,
// used when no config file is found.
func GetDefaultConfig() *Config {
	cfg := &Config{Endpoints: "localhost:2181"}
	ApplyDefaults(cfg)
	return cfg
}
