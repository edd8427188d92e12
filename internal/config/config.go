package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/popgrid/internal/cell"
	"github.com/sells-group/popgrid/internal/grid"
)

// Config holds the full application configuration.
type Config struct {
	Grid    GridConfig    `yaml:"grid" mapstructure:"grid"`
	Bounds  BoundsConfig  `yaml:"bounds" mapstructure:"bounds"`
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Raster  RasterConfig  `yaml:"raster" mapstructure:"raster"`
	Pings   PingsConfig   `yaml:"pings" mapstructure:"pings"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// GridConfig configures the condense and score commands.
type GridConfig struct {
	CensusPath string `yaml:"census_path" mapstructure:"census_path"`
	MobilePath string `yaml:"mobile_path" mapstructure:"mobile_path"`
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
	Geotag     bool   `yaml:"geotag" mapstructure:"geotag"`
	// Policy is "lenient" (malformed tokens become 0) or "strict".
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// BoundsConfig describes the study area and its raster.
type BoundsConfig struct {
	LatMin    float64 `yaml:"lat_min" mapstructure:"lat_min"`
	LatMax    float64 `yaml:"lat_max" mapstructure:"lat_max"`
	LonMin    float64 `yaml:"lon_min" mapstructure:"lon_min"`
	LonMax    float64 `yaml:"lon_max" mapstructure:"lon_max"`
	Step      float64 `yaml:"step" mapstructure:"step"`
	Rows      int     `yaml:"rows" mapstructure:"rows"`
	Cols      int     `yaml:"cols" mapstructure:"cols"`
	OriginLat float64 `yaml:"origin_lat" mapstructure:"origin_lat"`
	OriginLon float64 `yaml:"origin_lon" mapstructure:"origin_lon"`
}

// Grid returns the raster geometry used by the rasterizer and ping filter.
func (b BoundsConfig) Grid() grid.Bounds {
	return grid.Bounds{
		LatMin: b.LatMin, LatMax: b.LatMax,
		LonMin: b.LonMin, LonMax: b.LonMax,
		Step: b.Step, Rows: b.Rows, Cols: b.Cols,
	}
}

// Geo returns the coordinate model used to geotag condensed cells.
func (b BoundsConfig) Geo() cell.Geo {
	return cell.Geo{OriginLat: b.OriginLat, OriginLon: b.OriginLon, Step: b.Step}
}

// CensusConfig holds Census Bureau API and TIGER settings.
type CensusConfig struct {
	APIKey            string   `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string   `yaml:"base_url" mapstructure:"base_url"`
	Year              int      `yaml:"year" mapstructure:"year"`
	StateFIPS         string   `yaml:"state_fips" mapstructure:"state_fips"`
	Counties          []string `yaml:"counties" mapstructure:"counties"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TempDir           string   `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// RasterConfig configures the census rasterizer.
type RasterConfig struct {
	// Weighting is "cell" (share of the cell's area, default) or "polygon"
	// (share of the tract's area).
	Weighting string `yaml:"weighting" mapstructure:"weighting"`
}

// PingsConfig configures the mobile ping filter.
type PingsConfig struct {
	NightStart int     `yaml:"night_start" mapstructure:"night_start"`
	NightEnd   int     `yaml:"night_end" mapstructure:"night_end"`
	MaxSpeed   float64 `yaml:"max_speed" mapstructure:"max_speed"`
	// Keep selects which location a device contributes: "earliest" or "latest".
	Keep string `yaml:"keep" mapstructure:"keep"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POPGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("grid.census_path", "cmap.txt")
	v.SetDefault("grid.mobile_path", "mmap.txt")
	v.SetDefault("grid.output_path", "condensed_data.csv")
	v.SetDefault("grid.geotag", false)
	v.SetDefault("grid.policy", "lenient")
	v.SetDefault("bounds.lat_min", 33.4)
	v.SetDefault("bounds.lat_max", 34.3)
	v.SetDefault("bounds.lon_min", -118.6)
	v.SetDefault("bounds.lon_max", -117.6)
	v.SetDefault("bounds.step", 0.02)
	v.SetDefault("bounds.rows", 45)
	v.SetDefault("bounds.cols", 50)
	v.SetDefault("bounds.origin_lat", 33.4)
	v.SetDefault("bounds.origin_lon", -117.6)
	v.SetDefault("census.api_key", "")
	v.SetDefault("census.base_url", "https://api.census.gov/data")
	v.SetDefault("census.year", 2021)
	v.SetDefault("census.state_fips", "06")
	v.SetDefault("census.counties", []string{"037", "059", "111", "071", "065"})
	v.SetDefault("census.requests_per_second", 5.0)
	v.SetDefault("census.timeout_secs", 30)
	v.SetDefault("census.temp_dir", "/tmp/popgrid")
	v.SetDefault("raster.weighting", "cell")
	v.SetDefault("pings.night_start", 20)
	v.SetDefault("pings.night_end", 4)
	v.SetDefault("pings.max_speed", 3.0)
	v.SetDefault("pings.keep", "earliest")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.textfile", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// The census workflow has always read its key from CENSUS_API_KEY.
	if cfg.Census.APIKey == "" {
		cfg.Census.APIKey = os.Getenv("CENSUS_API_KEY")
	}

	return &cfg, nil
}

// LoadDotEnv reads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return eris.Wrapf(err, "config: read dotenv %s", path)
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return eris.Wrapf(err, "config: set %s", name)
		}
	}
	return nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.Grid.Policy {
	case "lenient", "strict":
	default:
		return eris.Errorf("config: grid.policy must be lenient or strict, got %q", c.Grid.Policy)
	}

	if err := c.Bounds.Grid().Validate(); err != nil {
		return eris.Wrap(err, "config: bounds")
	}

	switch c.Raster.Weighting {
	case "polygon", "cell":
	default:
		return eris.Errorf("config: raster.weighting must be polygon or cell, got %q", c.Raster.Weighting)
	}

	switch c.Pings.Keep {
	case "earliest", "latest":
	default:
		return eris.Errorf("config: pings.keep must be earliest or latest, got %q", c.Pings.Keep)
	}
	if c.Pings.NightStart < 0 || c.Pings.NightStart > 23 || c.Pings.NightEnd < 0 || c.Pings.NightEnd > 23 {
		return eris.New("config: pings night hours must be within 0-23")
	}
	if c.Pings.MaxSpeed <= 0 {
		return eris.Errorf("config: pings.max_speed must be positive, got %v", c.Pings.MaxSpeed)
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
