package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENLITE_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, DefaultAPIBase, cfg.RegisterURL())
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, time.Duration(0), cfg.RequestTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.TokenSettleDelay)
	assert.Equal(t, 3*time.Second, cfg.RedirectDelay)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "enlite:", cfg.Storage.Redis.Prefix)
	assert.Equal(t, "https://checkout.razorpay.com/v1/checkout.js", cfg.Widget.ScriptURL)
	assert.Equal(t, "INR", cfg.Widget.Currency)
	assert.False(t, cfg.Widget.Headless)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENLITE_CONFIG", "")
	t.Setenv("ENLITE_API_BASE", "http://localhost:8000/api")
	t.Setenv("ENLITE_REGISTER_BASE", "http://127.0.0.1:8000/api")
	t.Setenv("ENLITE_STORAGE", "memory")
	t.Setenv("ENLITE_REDIRECT_DELAY", "10ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIBase)
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.RegisterURL())
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 10*time.Millisecond, cfg.RedirectDelay)
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("ENLITE_CONFIG", "")
	content := `
env: prod
api_base: "https://api.example.com"
storage:
  backend: redis
  redis:
    addr: "redis:6379"
    db: 2
widget:
  headless: true
`
	path := filepath.Join(t.TempDir(), "enlite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "https://api.example.com", cfg.APIBase)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 2, cfg.Storage.Redis.DB)
	assert.True(t, cfg.Widget.Headless)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("ENLITE_CONFIG", "")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_BadBackend(t *testing.T) {
	t.Setenv("ENLITE_CONFIG", "")
	t.Setenv("ENLITE_STORAGE", "sqlite")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	c := Config{APIBase: "x", Storage: Storage{Backend: "file"}}
	require.NoError(t, c.Validate())

	c.RedirectDelay = -time.Second
	require.Error(t, c.Validate())

	c = Config{Storage: Storage{Backend: "file"}}
	require.Error(t, c.Validate())
}
