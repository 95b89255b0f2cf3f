package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kass/go-pinmap/pkg/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves the test into an empty directory so no stray config or .env is
// picked up
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, "http://localhost:8800/api", cfg.API.BaseURL)
	assert.Equal(t, viewport.Default, cfg.Viewport())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.False(t, cfg.Editor.RequireRating)
}

func TestLoadFile(t *testing.T) {
	dir := chdir(t)

	yml := `
api:
  base_url: https://pins.example.com/api
  timeout_ms: 2500
map:
  latitude: 30.0
  longitude: 114.0
  zoom: 6
storage:
  path: /tmp/pins.db
editor:
  require_rating: true
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, "https://pins.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout())
	assert.Equal(t, viewport.Viewport{Latitude: 30, Longitude: 114, Zoom: 6}, cfg.Viewport())
	assert.Equal(t, "/tmp/pins.db", cfg.Storage.Path)
	assert.True(t, cfg.Editor.RequireRating)

	// Unset keys keep their defaults
	assert.Equal(t, "pinmap.log", cfg.Log.File)
	assert.Equal(t, defaultStyle, cfg.Map.Style)
}

func TestLoadExampleFallback(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml.example"), []byte("map:\n  zoom: 9\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml.example", cfg.Source)
	assert.Equal(t, 9.0, cfg.Map.Zoom)
}

func TestLoadExampleBesidePath(t *testing.T) {
	dir := chdir(t)
	sub := filepath.Join(dir, "etc")
	require.NoError(t, os.Mkdir(sub, 0755))
	example := filepath.Join(sub, "config.yaml.example")
	require.NoError(t, os.WriteFile(example, []byte("map:\n  zoom: 7\n"), 0644))

	cfg, err := Load(filepath.Join(sub, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, example, cfg.Source)
	assert.Equal(t, 7.0, cfg.Map.Zoom)
}

func TestLoadInvalid(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PINMAP_ACCESS_TOKEN=pk.from-dotenv\n"), 0644))
	t.Setenv(EnvAPIURL, "http://10.0.0.2:8800/api")
	t.Setenv(EnvStorePath, "/var/lib/pinmap.db")
	t.Setenv("PINMAP_REQUIRE_RATING", "true")
	t.Cleanup(func() { os.Unsetenv(EnvAccessToken) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8800/api", cfg.API.BaseURL)
	assert.Equal(t, "/var/lib/pinmap.db", cfg.Storage.Path)
	assert.Equal(t, "pk.from-dotenv", cfg.Map.AccessToken)
	assert.True(t, cfg.Editor.RequireRating)
}

func TestEnvInvalidBool(t *testing.T) {
	chdir(t)
	t.Setenv("PINMAP_REQUIRE_RATING", "sometimes")

	_, err := Load("")
	assert.Error(t, err)
}
