package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 64, cfg.World.Size)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "debug.npy", cfg.Storage.SavePath)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromEnv(t *testing.T) {
	path := writeConfig(t, "world:\n  size: 32\n")
	t.Setenv("VOXEL_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.World.Size)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  size: 128
  sun: [0, 0, -1]
generation:
  mode: perlin
  seed: 42
  perlin_scale: 0.1
storage:
  backend: badger
  data_dir: /tmp/worlds
  world_name: main
  autosave_interval: 5m
ray:
  max_distance: 200
server:
  rest_port: 9000
telemetry:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.World.Size)
	assert.Equal(t, world.ModePerlin, cfg.Generation.Mode)
	assert.Equal(t, int64(42), cfg.Generation.Seed)
	assert.Equal(t, 32.0, cfg.Generation.Magnitude, "Незаданные поля берутся из дефолтов")
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Storage.AutosaveInterval)
	assert.Equal(t, 200.0, cfg.Ray.MaxDistance)
	assert.Equal(t, 9000, cfg.Server.GetRESTPort())
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "voxel-world", cfg.Telemetry.ServiceName)

	sun, err := cfg.World.SunVector()
	require.NoError(t, err)
	assert.Equal(t, -1.0, sun.Z)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = Load(writeConfig(t, "world: [not, a, map"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "storage:\n  backend: s3\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero size", func(c *Config) { c.World.Size = 0 }},
		{"huge size", func(c *Config) { c.World.Size = MaxWorldSize + 1 }},
		{"zero sun", func(c *Config) { c.World.Sun = []float64{0, 0, 0} }},
		{"short sun", func(c *Config) { c.World.Sun = []float64{1, 2} }},
		{"unknown mode", func(c *Config) { c.Generation.Mode = "caves" }},
		{"ratio above one", func(c *Config) { c.Generation.FillRatio = 1.5 }},
		{"negative magnitude", func(c *Config) { c.Generation.Magnitude = -1 }},
		{"no save path", func(c *Config) { c.Storage.SavePath = "" }},
		{"badger without name", func(c *Config) { c.Storage.Backend = BackendBadger; c.Storage.WorldName = "" }},
		{"negative steps", func(c *Config) { c.Ray.MaxSteps = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Generation.Mode = "caves"
	assert.True(t, errors.Is(cfg.Validate(), world.ErrUnknownMode))
}

func TestGenerationParams(t *testing.T) {
	cfg := Default()
	params := cfg.Generation.Params(64)
	assert.Equal(t, 32, params.SeaLevel, "Нулевой уровень моря - половина мира")
	assert.Equal(t, world.ModeLandscape, params.Mode)

	cfg.Generation.SeaLevel = 10
	assert.Equal(t, 10, cfg.Generation.Params(64).SeaLevel)
}

func TestPortFallback(t *testing.T) {
	var s ServerConfig

	t.Setenv("VOXEL_REST_PORT", "")
	assert.Equal(t, 8088, s.GetRESTPort())

	t.Setenv("VOXEL_REST_PORT", "9100")
	assert.Equal(t, 9100, s.GetRESTPort())

	t.Setenv("VOXEL_METRICS_PORT", "garbage")
	assert.Equal(t, 2112, s.GetMetricsPort())

	s.MetricsPort = 3000
	assert.Equal(t, 3000, s.GetMetricsPort())
}
