package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env or
// powersplit.yaml is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "./data/powersplit.db", cfg.DBPath)
	assert.Equal(t, "power-split", cfg.StateKey)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "", cfg.Remote.Driver)
	assert.Equal(t, "apartments", cfg.Remote.Table)
	assert.Equal(t, "powersplit:", cfg.Remote.KeyPrefix)
	assert.Equal(t, 800*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, "₽", cfg.Report.Currency)
	assert.Equal(t, "kWh", cfg.Report.Unit)
}

func TestLoadEnv(t *testing.T) {
	inTempDir(t)
	t.Setenv("POWERSPLIT_REMOTE_DRIVER", " Redis ")
	t.Setenv("POWERSPLIT_REMOTE_REDIS_ADDR", "localhost:6379")
	t.Setenv("POWERSPLIT_REMOTE_REDIS_DB", "2")
	t.Setenv("POWERSPLIT_SYNC_DEBOUNCE", "2s")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Remote.Driver)
	assert.Equal(t, "localhost:6379", cfg.Remote.RedisAddr)
	assert.Equal(t, 2, cfg.Remote.RedisDB)
	assert.Equal(t, 2*time.Second, cfg.Sync.Debounce)
}

func TestLoadDotEnv(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POWERSPLIT_STATE_KEY=flat-7\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("POWERSPLIT_STATE_KEY") })

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "flat-7", cfg.StateKey)
}

func TestLoadFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := "listen: \":9090\"\nreport:\n  currency: EUR\nremote:\n  driver: postgrest\n  url: https://example.test\n  api_key: anon\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "EUR", cfg.Report.Currency)
	assert.Equal(t, "postgrest", cfg.Remote.Driver)
	assert.Equal(t, "anon", cfg.Remote.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	_, err := Load(New(), filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{DBPath: "x.db", StateKey: "k"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"local only", func(c *Config) {}, false},
		{"memory", func(c *Config) { c.Remote.Driver = "memory" }, false},
		{"postgrest without key", func(c *Config) { c.Remote.Driver = "postgrest"; c.Remote.URL = "u" }, true},
		{"postgres without dsn", func(c *Config) { c.Remote.Driver = "postgres" }, true},
		{"redis without addr", func(c *Config) { c.Remote.Driver = "redis" }, true},
		{"unknown driver", func(c *Config) { c.Remote.Driver = "s3" }, true},
		{"empty key", func(c *Config) { c.StateKey = " " }, true},
		{"negative debounce", func(c *Config) { c.Sync.Debounce = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
