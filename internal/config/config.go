// Package config loads launchpad-feed settings from an optional YAML file
// and LPF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. LPF_CACHE_TTL.
const EnvPrefix = "LPF"

// Snapshot store backends.
const (
	SnapshotsMemory   = "memory"
	SnapshotsPostgres = "postgres"
	SnapshotsRedis    = "redis"
	SnapshotsNone     = "none"
)

// Activity store backends.
const (
	ActivityMemory     = "memory"
	ActivityClickhouse = "clickhouse"
	ActivityNone       = "none"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Bitquery BitqueryConfig `mapstructure:"bitquery"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cron     CronConfig     `mapstructure:"cron"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type BitqueryConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type CacheConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`
	SourceTimeout  time.Duration `mapstructure:"source_timeout"`
	SourceLimit    int           `mapstructure:"source_limit"`
	FeaturedLimit  int           `mapstructure:"featured_limit"`
	Singleflight   bool          `mapstructure:"singleflight"`
	RestoreOnStart bool          `mapstructure:"restore_on_start"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

type StorageConfig struct {
	Snapshots     string `mapstructure:"snapshots"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisKey      string `mapstructure:"redis_key"`
	Activity      string `mapstructure:"activity"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Warm    string `mapstructure:"warm"`
}

// Load reads path (when non-empty) and overlays the environment. A missing
// file is an error only when path was given explicitly.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// The bare variable is what Bitquery documents, so accept it as well.
	if cfg.Bitquery.APIKey == "" {
		cfg.Bitquery.APIKey = strings.TrimSpace(os.Getenv("BITQUERY_API_KEY"))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("bitquery.endpoint", "https://streaming.bitquery.io/eap")
	v.SetDefault("bitquery.api_key", "")
	v.SetDefault("bitquery.timeout", "10s")
	v.SetDefault("bitquery.max_retries", 0)
	v.SetDefault("bitquery.retry_delay", "500ms")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.source_timeout", "10s")
	v.SetDefault("cache.source_limit", 20)
	v.SetDefault("cache.featured_limit", 20)
	v.SetDefault("cache.singleflight", true)
	v.SetDefault("cache.restore_on_start", false)
	v.SetDefault("cache.persist_timeout", "5s")
	v.SetDefault("storage.snapshots", SnapshotsNone)
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_key", "launchpad-feed")
	v.SetDefault("storage.activity", ActivityNone)
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("cron.enabled", false)
	v.SetDefault("cron.warm", "@every 1m")
}

// Validate checks backend selections and their connection settings.
// A missing Bitquery key is not an error here; requests fail closed instead.
func (c Config) Validate() error {
	var errs []error

	switch c.Storage.Snapshots {
	case SnapshotsMemory, SnapshotsNone, SnapshotsRedis:
	case SnapshotsPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for postgres snapshots"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.snapshots %q", c.Storage.Snapshots))
	}

	switch c.Storage.Activity {
	case ActivityMemory, ActivityNone:
	case ActivityClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			errs = append(errs, errors.New("storage.clickhouse_dsn is required for clickhouse activity"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.activity %q", c.Storage.Activity))
	}

	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.SourceTimeout <= 0 {
		errs = append(errs, errors.New("cache.source_timeout must be positive"))
	}
	if c.Cron.Enabled && strings.TrimSpace(c.Cron.Warm) == "" {
		errs = append(errs, errors.New("cron.warm is required when cron is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
