// Package config loads the CLI's runtime configuration for a long-lived
// client process (cmd/zkctl, including its "debug serve" mode, and any
// embedding service): endpoints, timeouts, auth scheme, and the ambient logging/
// metrics/telemetry sections. Adapted from the teacher's pkg/config,
// trimmed to the client's concerns (no database, cache, share, or
// adapter sections — this client owns no server-side state).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the zkctl/embedding-service configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (highest priority, applied by the caller after Load)
//  2. Environment variables (ZKGO_*, for keys present in the file)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Endpoints is the comma-separated "host:port" server list passed
	// straight to internal/endpoint.Parse.
	Endpoints string `mapstructure:"endpoints" validate:"required" yaml:"endpoints"`

	// SessionTimeout is the requested session timeout presented at
	// handshake.
	SessionTimeout time.Duration `mapstructure:"session_timeout" validate:"required,gt=0" yaml:"session_timeout"`

	// ConnectTimeout bounds a single dial+handshake attempt.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"required,gt=0" yaml:"connect_timeout"`

	// ReconnectBackoff controls the endpoint-cursor-wrap back-off
	// (DESIGN.md Open Question 1).
	ReconnectBackoff ReconnectBackoffConfig `mapstructure:"reconnect_backoff" yaml:"reconnect_backoff"`

	// Auth is the credential zkctl presents via AddAuth once its session
	// first connects, if any scheme is configured. It is not
	// re-presented after a later reconnect.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics controls the Prometheus metrics HTTP surface
	// (pkg/zk/debug).
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Profiling controls continuous Pyroscope profiling
	// (internal/telemetry.InitProfiling).
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ReconnectBackoffConfig tunes the reconnect loop's back-off.
type ReconnectBackoffConfig struct {
	Base time.Duration `mapstructure:"base" yaml:"base"`
	Cap  time.Duration `mapstructure:"cap" yaml:"cap"`
}

// AuthConfig names the credential producer to use, per pkg/zk/auth.
type AuthConfig struct {
	// Scheme selects the credential producer: "", "digest", "jwt", or
	// "kerberos".
	Scheme string `mapstructure:"scheme" validate:"omitempty,oneof=digest jwt kerberos" yaml:"scheme"`

	// User/Pass feed the digest scheme.
	User string `mapstructure:"user" yaml:"user,omitempty"`
	Pass string `mapstructure:"pass" yaml:"pass,omitempty"`

	// Token feeds the jwt scheme.
	Token string `mapstructure:"token" yaml:"token,omitempty"`

	// Kerberos feeds the kerberos scheme.
	Kerberos KerberosConfig `mapstructure:"kerberos" yaml:"kerberos,omitempty"`
}

// KerberosConfig mirrors pkg/zk/auth.KerberosConfig so it can be
// populated from a config file instead of constructed in code.
type KerberosConfig struct {
	KeytabPath       string `mapstructure:"keytab_path" yaml:"keytab_path,omitempty"`
	Krb5ConfPath     string `mapstructure:"krb5_conf_path" yaml:"krb5_conf_path,omitempty"`
	ClientPrincipal  string `mapstructure:"client_principal" yaml:"client_principal,omitempty"`
	Realm            string `mapstructure:"realm" yaml:"realm,omitempty"`
	ServicePrincipal string `mapstructure:"service_principal" yaml:"service_principal,omitempty"`
}

// LoggingConfig controls log output (internal/logger).
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing (internal/telemetry).
type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint       string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure       bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate     float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`
	ServiceName    string  `mapstructure:"service_name" yaml:"service_name"`
	ServiceVersion string  `mapstructure:"service_version" yaml:"service_version"`
}

// MetricsConfig controls the diagnostics HTTP server (pkg/zk/debug).
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" validate:"omitempty,hostname_port" yaml:"addr"`
}

// ProfilingConfig controls continuous Pyroscope profiling.
type ProfilingConfig struct {
	Enabled      bool     `mapstructure:"enabled" yaml:"enabled"`
	Endpoint     string   `mapstructure:"endpoint" yaml:"endpoint"`
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types,omitempty"`
}

// Load loads configuration from the YAML file and fills unset fields
// with defaults. ZKGO_* environment variables override only keys that
// appear in the file; when no file is found, Load returns the defaults
// and does not consult the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// SaveConfig writes cfg to path in YAML, matching the teacher's
// "config files may contain credentials" 0600 permission choice.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ZKGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zkgo")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "zkgo")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the configuration directory for the init command.
func GetConfigDir() string {
	return getConfigDir()
}
