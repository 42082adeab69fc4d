package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "localhost:2181", cfg.Endpoints)
	assert.Equal(t, 30*time.Second, cfg.SessionTimeout)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.ReconnectBackoff.Base)
	assert.Equal(t, 8*time.Second, cfg.ReconnectBackoff.Cap)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "zkgo", cfg.Telemetry.ServiceName)
	assert.Equal(t, "localhost:9090", cfg.Metrics.Addr)
	assert.Equal(t, "http://localhost:4040", cfg.Profiling.Endpoint)
	assert.Equal(t, []string{"cpu", "alloc_objects", "inuse_objects"}, cfg.Profiling.ProfileTypes)
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsMissingEndpoints(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Endpoints = ""
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsBadAuthScheme(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Auth.Scheme = "telepathy"
	require.Error(t, Validate(cfg))
}

func TestLoadWithNoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:2181", cfg.Endpoints)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("endpoints: \"zk1:2181,zk2:2181\"\nsession_timeout: 45s\n")
	require.NoError(t, os.WriteFile(path, body, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zk1:2181,zk2:2181", cfg.Endpoints)
	assert.Equal(t, 45*time.Second, cfg.SessionTimeout)
	// Untouched fields still get defaults applied.
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Endpoints = "a:2181,b:2181"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Endpoints, loaded.Endpoints)
}
