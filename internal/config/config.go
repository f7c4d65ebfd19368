// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistent geocode cache.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// GeocodeConfig configures the external geocoding services.
type GeocodeConfig struct {
	AISBaseURL       string  `yaml:"ais_base_url" mapstructure:"ais_base_url"`
	GatekeeperKey    string  `yaml:"gatekeeper_key" mapstructure:"gatekeeper_key"`
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	UserAgent        string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	AccountDelayMS   int     `yaml:"account_delay_ms" mapstructure:"account_delay_ms"`
	SearchDelayMS    int     `yaml:"search_delay_ms" mapstructure:"search_delay_ms"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// PipelineConfig configures dispatch and clustering.
type PipelineConfig struct {
	Workers     int     `yaml:"workers" mapstructure:"workers"`
	ClusterFeet float64 `yaml:"cluster_feet" mapstructure:"cluster_feet"`
	HeaderRow   int     `yaml:"header_row" mapstructure:"header_row"`
}

// ExportConfig configures the output artifacts.
type ExportConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	XLSXName    string `yaml:"xlsx_name" mapstructure:"xlsx_name"`
	GeoJSONName string `yaml:"geojson_name" mapstructure:"geojson_name"`
	MapName     string `yaml:"map_name" mapstructure:"map_name"`
}

// ServerConfig configures the artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AUCTIONMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "geocode_cache.db")
	v.SetDefault("geocode.ais_base_url", "https://api.phila.gov/ais_doc/v1/search")
	v.SetDefault("geocode.gatekeeper_key", "")
	v.SetDefault("geocode.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "auctionmap/1.0")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.account_delay_ms", 500)
	v.SetDefault("geocode.search_delay_ms", 1000)
	v.SetDefault("geocode.rate_limit_rps", 1.0)
	v.SetDefault("pipeline.workers", 5)
	v.SetDefault("pipeline.cluster_feet", 300)
	v.SetDefault("pipeline.header_row", 3)
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.xlsx_name", "AuctionList_Processed.xlsx")
	v.SetDefault("export.geojson_name", "AuctionMap.geojson")
	v.SetDefault("export.map_name", "AuctionMap.html")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	return &cfg, nil
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
