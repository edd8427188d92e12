package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)
	t.Setenv("CENSUS_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cmap.txt", cfg.Grid.CensusPath)
	assert.Equal(t, "mmap.txt", cfg.Grid.MobilePath)
	assert.Equal(t, "condensed_data.csv", cfg.Grid.OutputPath)
	assert.False(t, cfg.Grid.Geotag)
	assert.Equal(t, "lenient", cfg.Grid.Policy)
	assert.InDelta(t, 33.4, cfg.Bounds.LatMin, 1e-9)
	assert.InDelta(t, 34.3, cfg.Bounds.LatMax, 1e-9)
	assert.InDelta(t, -118.6, cfg.Bounds.LonMin, 1e-9)
	assert.InDelta(t, -117.6, cfg.Bounds.LonMax, 1e-9)
	assert.InDelta(t, 0.02, cfg.Bounds.Step, 1e-9)
	assert.Equal(t, 45, cfg.Bounds.Rows)
	assert.Equal(t, 50, cfg.Bounds.Cols)
	assert.InDelta(t, -117.6, cfg.Bounds.OriginLon, 1e-9)
	assert.Equal(t, "https://api.census.gov/data", cfg.Census.BaseURL)
	assert.Equal(t, 2021, cfg.Census.Year)
	assert.Equal(t, []string{"037", "059", "111", "071", "065"}, cfg.Census.Counties)
	assert.Equal(t, 20, cfg.Pings.NightStart)
	assert.Equal(t, 4, cfg.Pings.NightEnd)
	assert.InDelta(t, 3.0, cfg.Pings.MaxSpeed, 1e-9)
	assert.Equal(t, "earliest", cfg.Pings.Keep)
	assert.Equal(t, "cell", cfg.Raster.Weighting)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Empty(t, cfg.Census.APIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
grid:
  census_path: data/census.txt
  geotag: true
  policy: strict
log:
  level: debug
  format: json
pings:
  keep: latest
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/census.txt", cfg.Grid.CensusPath)
	assert.True(t, cfg.Grid.Geotag)
	assert.Equal(t, "strict", cfg.Grid.Policy)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "latest", cfg.Pings.Keep)
	// Defaults still apply for unset values
	assert.Equal(t, "mmap.txt", cfg.Grid.MobilePath)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
grid:
  output_path: from-file.csv
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("POPGRID_GRID_OUTPUT_PATH", "from-env.csv")
	t.Setenv("POPGRID_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env.csv", cfg.Grid.OutputPath)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadCensusKeyFallback(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CENSUS_API_KEY", "legacy-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.Census.APIKey)

	t.Setenv("POPGRID_CENSUS_API_KEY", "prefixed-key")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.Census.APIKey)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("grid: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOTENV_TEST_KEY=abc123\nDOTENV_TEST_SET=from-file\n"), 0644))

	os.Unsetenv("DOTENV_TEST_KEY")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_KEY") })
	t.Setenv("DOTENV_TEST_SET", "from-env")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "abc123", os.Getenv("DOTENV_TEST_KEY"))
	assert.Equal(t, "from-env", os.Getenv("DOTENV_TEST_SET"))
}

func TestLoadDotEnv_Missing(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func validDefaults() *Config {
	cfg := &Config{}
	cfg.Grid.Policy = "lenient"
	cfg.Bounds = BoundsConfig{LatMin: 33.4, LatMax: 34.3, LonMin: -118.6, LonMax: -117.6, Step: 0.02, Rows: 45, Cols: 50}
	cfg.Raster.Weighting = "cell"
	cfg.Pings = PingsConfig{NightStart: 20, NightEnd: 4, MaxSpeed: 3, Keep: "earliest"}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"strict policy", func(c *Config) { c.Grid.Policy = "strict" }, false},
		{"unknown policy", func(c *Config) { c.Grid.Policy = "zero" }, true},
		{"zero step", func(c *Config) { c.Bounds.Step = 0 }, true},
		{"no rows", func(c *Config) { c.Bounds.Rows = 0 }, true},
		{"inverted lat", func(c *Config) { c.Bounds.LatMax = 33 }, true},
		{"polygon weighting", func(c *Config) { c.Raster.Weighting = "polygon" }, false},
		{"bad weighting", func(c *Config) { c.Raster.Weighting = "area" }, true},
		{"bad keep", func(c *Config) { c.Pings.Keep = "first" }, true},
		{"bad night hour", func(c *Config) { c.Pings.NightStart = 24 }, true},
		{"zero max speed", func(c *Config) { c.Pings.MaxSpeed = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBoundsConversions(t *testing.T) {
	b := validDefaults().Bounds
	b.OriginLat, b.OriginLon = 33.4, -117.6

	g := b.Grid()
	assert.Equal(t, 45, g.Rows)
	assert.Equal(t, 50, g.Cols)
	assert.InDelta(t, -118.6, g.LonMin, 1e-12)
	assert.NoError(t, g.Validate())

	geo := b.Geo()
	assert.InDelta(t, 33.4, geo.OriginLat, 1e-12)
	assert.InDelta(t, -117.6, geo.OriginLon, 1e-12)
	assert.InDelta(t, 0.02, geo.Step, 1e-12)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
