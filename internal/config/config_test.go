package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1000.0, cfg.Planet.BaseRadius)
	assert.Equal(t, 4, cfg.Planet.MaxDepth)
	assert.Equal(t, 1.2, cfg.Planet.DepthBias)
	assert.Equal(t, 8, cfg.Planet.BaseResolution)
	assert.Equal(t, "perlin", cfg.Terrain.Provider)
	assert.Equal(t, int64(1337), cfg.Terrain.Seed)
	assert.Equal(t, "heuristic", cfg.Selection.Mode)
	assert.Equal(t, 4, cfg.Stream.MaxSpawnsPerSlice)
	assert.Equal(t, 30, cfg.Stream.VisibilityHz)

	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	content := `
planet:
  base_radius: 2000
  max_depth: 3
terrain:
  provider: value3d
  seed: 7
selection:
  mode: geometric
stream:
  max_spawns_per_slice: 8
  compact_hidden: true
server:
  api_port: 9001
`
	path := filepath.Join(t.TempDir(), "planet.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2000.0, cfg.Planet.BaseRadius)
	assert.Equal(t, 3, cfg.Planet.MaxDepth)
	assert.Equal(t, "value3d", cfg.Terrain.Provider)
	assert.Equal(t, int64(7), cfg.Terrain.Seed)
	assert.Equal(t, "geometric", cfg.Selection.Mode)
	assert.Equal(t, 8, cfg.Stream.MaxSpawnsPerSlice)
	assert.True(t, cfg.Stream.CompactHidden)
	assert.Equal(t, 9001, cfg.Server.GetAPIPort())

	// Незаполненные поля получают значения по умолчанию
	assert.Equal(t, 1.2, cfg.Planet.DepthBias)
	assert.Equal(t, 2000.0*1.01, cfg.Planet.MinDistance)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/planet.yml")
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("PLANET_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, cfg.Planet.BaseRadius)
}

func TestLoadFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planet.yml")
	require.NoError(t, os.WriteFile(path, []byte("planet:\n  base_radius: 750\n"), 0o644))
	t.Setenv("PLANET_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 750.0, cfg.Planet.BaseRadius)
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfg := Default()
	cfg.Terrain.Provider = "volcano"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Default()
	cfg.Selection.Mode = "psychic"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedDistances(t *testing.T) {
	cfg := Default()
	cfg.Planet.MinDistance = 4000
	cfg.Planet.MaxDistance = 2000
	assert.Error(t, cfg.Validate())
}

func TestAPIPortEnvFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("PLANET_API_PORT", "9999")
	assert.Equal(t, 9999, s.GetAPIPort())

	t.Setenv("PLANET_API_PORT", "")
	assert.Equal(t, 8088, s.GetAPIPort())

	s.APIPort = 7070
	assert.Equal(t, 7070, s.GetAPIPort())
}
