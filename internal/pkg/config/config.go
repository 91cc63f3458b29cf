package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Traccar   TraccarConfig   `mapstructure:"traccar"`
	Map       MapConfig       `mapstructure:"map"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	RateLimit    int `mapstructure:"rate_limit"` // requests per minute per IP, 0 disables
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Durable string `mapstructure:"durable"`
}

type ValkeyConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// TraccarConfig points at the external tracking service. Credentials only
// ever come from the environment or a config file.
type TraccarConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Timeout      int    `mapstructure:"timeout"`       // seconds
	PollInterval int    `mapstructure:"poll_interval"` // seconds, realtime poller
}

// MapConfig holds the tile layer and refresh intervals shared by all views.
type MapConfig struct {
	TileURL         string `mapstructure:"tile_url"`
	TileMaxZoom     int    `mapstructure:"tile_max_zoom"`
	Attribution     string `mapstructure:"attribution"`
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	ClientRefresh   int    `mapstructure:"client_refresh"`   // seconds
	TrackingRefresh int    `mapstructure:"tracking_refresh"` // seconds
}

type TemporalConfig struct {
	HostPort     string `mapstructure:"host_port"`
	Namespace    string `mapstructure:"namespace"`
	TaskQueue    string `mapstructure:"task_queue"`
	TrackingCron string `mapstructure:"tracking_cron"` // empty disables the scheduled refresh
	Enabled      bool   `mapstructure:"enabled"`
}

// Load reads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load(service string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	// Environment variables: TRACKMAP_TRACCAR_BASE_URL → traccar.base_url
	v.SetEnvPrefix("TRACKMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "trackmap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "trackmap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.durable", "trackmap-positions")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.password", "")
	v.SetDefault("valkey.prefix", "trackmap:")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("traccar.base_url", "http://localhost:8082")
	v.SetDefault("traccar.username", "")
	v.SetDefault("traccar.password", "")
	v.SetDefault("traccar.timeout", 10)
	v.SetDefault("traccar.poll_interval", 5)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.tile_max_zoom", 19)
	v.SetDefault("map.attribution", "© OpenStreetMap contributors")
	v.SetDefault("map.width", 800)
	v.SetDefault("map.height", 600)
	v.SetDefault("map.client_refresh", 10)
	v.SetDefault("map.tracking_refresh", 5)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "trackmap-device-sync")
	v.SetDefault("temporal.tracking_cron", "*/5 * * * *")
	v.SetDefault("temporal.enabled", false)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if u, err := url.Parse(c.Traccar.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("traccar.base_url must be an absolute URL, got %q", c.Traccar.BaseURL))
	}
	if (c.Traccar.Username == "") != (c.Traccar.Password == "") {
		errs = append(errs, "traccar.username and traccar.password must be set together")
	}
	if c.Traccar.Timeout <= 0 {
		errs = append(errs, "traccar.timeout must be positive")
	}
	if c.Traccar.PollInterval <= 0 {
		errs = append(errs, "traccar.poll_interval must be positive")
	}
	if c.Map.ClientRefresh <= 0 || c.Map.TrackingRefresh <= 0 {
		errs = append(errs, "map.client_refresh and map.tracking_refresh must be positive")
	}
	if c.Map.TileMaxZoom <= 0 || c.Map.TileMaxZoom > 24 {
		errs = append(errs, fmt.Sprintf("map.tile_max_zoom must be 1-24, got %d", c.Map.TileMaxZoom))
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
