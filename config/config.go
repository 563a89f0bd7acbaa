package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// HTTP server
	Server ServerConfig `mapstructure:"server"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis (route cache + rate limiting)
	Redis RedisConfig `mapstructure:"redis"`

	// NATS (click export stream)
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	// Route cache policy
	Cache CacheConfig `mapstructure:"cache"`

	// Analytics tracker
	Tracker TrackerConfig `mapstructure:"tracker"`

	// Geo enrichment
	Geo GeoConfig `mapstructure:"geo"`
}

type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	VisitorSecret string `mapstructure:"visitor_secret"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	Database          string `mapstructure:"database"`
	Port              int    `mapstructure:"port"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	MonitorPort int    `mapstructure:"monitor_port"`
}

type PrometheusConfig struct {
	Port           int    `mapstructure:"port"`
	Retention      string `mapstructure:"retention"`
	ScrapeInterval string `mapstructure:"scrape_interval"`
	Target         string `mapstructure:"target"`
}

// CacheConfig controls the route cache. TTLSeconds is also the staleness
// window: a deactivated or expired link may keep redirecting for at most this
// long after its last cache write.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

type TrackerConfig struct {
	BatchSize            int  `mapstructure:"batch_size"`
	FlushIntervalSeconds int  `mapstructure:"flush_interval_seconds"`
	ExportEnabled        bool `mapstructure:"export_enabled"`
}

type GeoConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	TimeoutMillis int    `mapstructure:"timeout_millis"`
	CacheSize     int    `mapstructure:"cache_size"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvPrefix("")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("tracker.batch_size", 10)
	v.SetDefault("tracker.flush_interval_seconds", 5)
	v.SetDefault("tracker.export_enabled", false)
	v.SetDefault("geo.endpoint", "http://ip-api.com/json")
	v.SetDefault("geo.timeout_millis", 2000)
	v.SetDefault("geo.cache_size", 10000)
}

func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.addr", "SERVER_ADDR")
	v.BindEnv("server.visitor_secret", "VISITOR_SECRET")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")
	v.BindEnv("nats.monitor_port", "NATS_MONITOR_PORT")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
	v.BindEnv("prometheus.retention", "PROM_RETENTION")
	v.BindEnv("prometheus.scrape_interval", "PROM_SCRAPE_INTERVAL")
	v.BindEnv("prometheus.target", "PROM_TARGET")

	// Cache / tracker / geo
	v.BindEnv("cache.ttl_seconds", "CACHE_TTL_SECONDS")
	v.BindEnv("tracker.batch_size", "TRACKER_BATCH_SIZE")
	v.BindEnv("tracker.flush_interval_seconds", "TRACKER_FLUSH_INTERVAL_SECONDS")
	v.BindEnv("tracker.export_enabled", "TRACKER_EXPORT_ENABLED")
	v.BindEnv("geo.endpoint", "GEO_ENDPOINT")
	v.BindEnv("geo.timeout_millis", "GEO_TIMEOUT_MILLIS")
	v.BindEnv("geo.cache_size", "GEO_CACHE_SIZE")
}
