package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/custodian/internal/detection"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "custodian.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, detection.PolicyHandleBoth, cfg.Policy())
	assert.Equal(t, []detection.Kind{detection.KindDirt, detection.KindTrash}, cfg.Priority())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
backend: sqlite
sqlite_path: /var/lib/custodian.db
poll_interval: 500ms
gateway:
  mode: sim
  sim_step: 10ms
detection:
  policy: first-only
  priority: trash,dirt
`)
	cfg, err := Load(path, true)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "/var/lib/custodian.db", cfg.SQLitePath)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, GatewaySim, cfg.Gateway.Mode)
	assert.Equal(t, 10*time.Millisecond, cfg.Gateway.SimStep)
	assert.Equal(t, detection.PolicyFirstOnly, cfg.Policy())
	assert.Equal(t, []detection.Kind{detection.KindTrash, detection.KindDirt}, cfg.Priority())
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultConfig().Gateway.URL, cfg.Gateway.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := Load(missing, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Backend, cfg.Backend)

	_, err = Load(missing, true)
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeFile(t, "backend: [unterminated"), true)
	assert.ErrorContains(t, err, "parsing config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "backend: sqlite\n")
	t.Setenv("CUSTODIAN_BACKEND", "json")
	t.Setenv("CUSTODIAN_POLL_INTERVAL", "250ms")
	t.Setenv("CUSTODIAN_GATEWAY_RETRIES", "0")

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, cfg.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 0, cfg.Gateway.Retries)
}

func TestLoad_InvalidEnvDuration(t *testing.T) {
	t.Setenv("CUSTODIAN_POLL_INTERVAL", "soon")
	_, err := Load("", false)
	assert.ErrorContains(t, err, "CUSTODIAN_POLL_INTERVAL")
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":  func(c *Config) { c.Backend = "postgres" },
		"gateway":  func(c *Config) { c.Gateway.Mode = "ros" },
		"feed":     func(c *Config) { c.Detection.Feed = "kafka" },
		"policy":   func(c *Config) { c.Detection.Policy = "latest" },
		"priority": func(c *Config) { c.Detection.Priority = "dirt,dust" },
		"poll":     func(c *Config) { c.PollInterval = 0 },
		"retries":  func(c *Config) { c.Gateway.Retries = -1 },
		"retrycap": func(c *Config) { c.Gateway.Retries = MaxRetries + 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFromFlags_FlagsWin(t *testing.T) {
	path := writeFile(t, "backend: sqlite\ngateway:\n  mode: sim\n")
	t.Setenv("CUSTODIAN_LOG_LEVEL", "warn")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--config", path,
		"--backend", "json",
		"--detection-policy", "first-only",
		"--poll-interval", "3s",
	}))

	cfg, err := FromFlags(fs)
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, cfg.Backend)
	assert.Equal(t, GatewaySim, cfg.Gateway.Mode)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, detection.PolicyFirstOnly, cfg.Policy())
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
}
