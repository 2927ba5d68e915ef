package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	d := DefaultConfig()
	assert.Equal(t, d.Scraper, cfg.Scraper)
	assert.Equal(t, "50051", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Scraper.SettleBudget)
	assert.Equal(t, 2*time.Second, cfg.Scraper.ScrollBudget)
	require.NoError(t, cfg.Validate())
}

func TestLoadFilesEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
scraper:
  headless: false
  timeout: 30s
  max_sessions: 4
catalog:
  path: /tmp/catalog.db
server:
  port: "6000"
logging:
  level: debug
`)
	t.Setenv("IMGSCOUT_SERVER_PORT", "7000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--log-level", "warn"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.False(t, cfg.Scraper.Headless)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 4, cfg.Scraper.MaxSessions)
	assert.Equal(t, "/tmp/catalog.db", cfg.Catalog.Path)
	assert.Equal(t, "7000", cfg.Server.Port, "env overrides file")
	assert.Equal(t, "warn", cfg.Logging.Level, "explicit flag overrides file")

	opts := cfg.ScraperOptions()
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, 4, opts.MaxSessions)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	_, err := Load(fs)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scraper.SearchURL = "https://example.com/?q=fixed"
	assert.ErrorContains(t, cfg.Validate(), "search_url")

	cfg = DefaultConfig()
	cfg.Scraper.MaxSessions = 0
	assert.ErrorContains(t, cfg.Validate(), "max_sessions")

	cfg = DefaultConfig()
	cfg.Catalog.Path = ""
	assert.Error(t, cfg.Validate())
}
