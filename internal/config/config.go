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
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Dedupe   DedupeConfig   `yaml:"dedupe" mapstructure:"dedupe"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Serve    ServeConfig    `yaml:"serve" mapstructure:"serve"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the gazetteer store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures raw dataset downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	FTPMirror   string `yaml:"ftp_mirror" mapstructure:"ftp_mirror"`
}

// DedupeConfig configures the entity deduplication core.
type DedupeConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	Workers   int     `yaml:"workers" mapstructure:"workers"`
}

// PipelineConfig configures the staged pipeline runner.
type PipelineConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// ServeConfig configures the gazetteer lookup server.
type ServeConfig struct {
	Port         int `yaml:"port" mapstructure:"port"`
	CacheTTLMins int `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	MaxMatches   int `yaml:"max_matches" mapstructure:"max_matches"`
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
	v.SetEnvPrefix("GAZETTEER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "gazetteer.db")
	v.SetDefault("fetch.user_agent", "gazetteer-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("dedupe.threshold", 0.5)
	v.SetDefault("dedupe.workers", 0)
	v.SetDefault("pipeline.data_dir", "data")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.cache_ttl_minutes", 10)
	v.SetDefault("serve.max_matches", 5)
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
