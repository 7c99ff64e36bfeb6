package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  addr: ":9090"
  cors_origins: ["https://duty.example.com"]
database:
  driver: sqlite
  dsn: "file:hotd.db"
  conn_max_lifetime: 1m
trigger:
  enabled: true
  at: "06:30"
directory:
  kind: realtime
  realtime_url: ws://gateway:8081/ws
  timeout: 3s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.API.Addr)
	assert.Equal(t, "X-Member-Id", cfg.API.MemberHeader)
	assert.Equal(t, []string{"https://duty.example.com"}, cfg.API.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, time.Minute, cfg.Database.ConnMaxLifetime.Std())
	assert.Equal(t, 3*time.Second, cfg.Directory.Timeout.Std())

	at, err := cfg.Trigger.TimeOfDay()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour+30*time.Minute, at)
}

func TestLoadConfigJSONWithEnvironment(t *testing.T) {
	path := writeFile(t, "config.json", `{"reconcile": {"concurrency": 8}, "directory": {"timeout": "5s"}}`)
	t.Setenv("HOTD_API_ADDR", ":7070")
	t.Setenv("HOTD_DIRECTORY_TIMEOUT", "2s")
	t.Setenv("HOTD_RECONCILE_ATTEMPTS", "5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.API.Addr)
	assert.Equal(t, 8, cfg.Reconcile.Concurrency)
	assert.Equal(t, 5, cfg.Reconcile.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Directory.Timeout.Std())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"slack token", func(c *Config) { c.Directory.Kind = DirectorySlack }},
		{"realtime url", func(c *Config) { c.Directory.Kind = DirectoryRealtime }},
		{"directory kind", func(c *Config) { c.Directory.Kind = "ldap" }},
		{"trigger time", func(c *Config) { c.Trigger.At = "25:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Reconcile.Attempts = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Reconcile.Attempts)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "broken.json", `{"api": `))
	assert.ErrorContains(t, err, "parse config")

	_, err = LoadConfig(writeFile(t, "bad.yaml", "directory:\n  timeout: soon\n"))
	assert.Error(t, err)
}
