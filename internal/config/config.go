package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pavement/pavement-api/internal/aggregation"
	"github.com/pavement/pavement-api/internal/models"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Parking     ParkingConfig   `mapstructure:"parking"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	// Exporter is "otlp" or "stdout".
	Exporter string `mapstructure:"exporter"`
}

// ParkingConfig holds the business calendar and query defaults of the metered area.
type ParkingConfig struct {
	Timezone          string `mapstructure:"timezone"`
	ExcludedStart     string `mapstructure:"excluded_start"`
	ExcludedEnd       string `mapstructure:"excluded_end"`
	CarryOverStart    string `mapstructure:"carry_over_start"`
	CarryOverEnd      string `mapstructure:"carry_over_end"`
	ExcludeOffHours   bool   `mapstructure:"exclude_off_hours"`
	TotalSpaces       int    `mapstructure:"total_spaces"`
	DefaultRangeStart string `mapstructure:"default_range_start"`
	DefaultRangeEnd   string `mapstructure:"default_range_end"`
	CacheTTL          string `mapstructure:"cache_ttl"`
}

// Load reads .env, config.yaml and the environment, in increasing precedence.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks every value that is parsed later so that a bad deployment
// fails at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := parseDuration("server.read_timeout", c.Server.ReadTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("server.write_timeout", c.Server.WriteTimeout); err != nil {
		return err
	}
	switch c.Telemetry.Exporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
	}

	p := c.Parking
	if p.TotalSpaces <= 0 {
		return fmt.Errorf("parking.total_spaces must be positive, got %d", p.TotalSpaces)
	}
	if _, err := p.CacheTTLDuration(); err != nil {
		return err
	}
	if _, err := p.Calendar(); err != nil {
		return err
	}
	rng, err := p.DefaultRange()
	if err != nil {
		return err
	}
	if rng.Empty() {
		return fmt.Errorf("parking default range %s..%s is empty", p.DefaultRangeStart, p.DefaultRangeEnd)
	}
	return nil
}

// ReadTimeoutDuration returns the parsed server read timeout.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.ReadTimeout)
	return d
}

// WriteTimeoutDuration returns the parsed server write timeout.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.WriteTimeout)
	return d
}

// Calendar builds the business calendar. The excluded window is left inactive
// when off-hours exclusion is disabled.
func (p ParkingConfig) Calendar() (aggregation.Calendar, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return aggregation.Calendar{}, fmt.Errorf("invalid parking.timezone %q: %w", p.Timezone, err)
	}
	carry, err := aggregation.NewClockWindow(p.CarryOverStart, p.CarryOverEnd)
	if err != nil {
		return aggregation.Calendar{}, fmt.Errorf("invalid carry-over window: %w", err)
	}
	cal := aggregation.Calendar{Location: loc, CarryOver: carry}
	if p.ExcludeOffHours {
		excluded, err := aggregation.NewClockWindow(p.ExcludedStart, p.ExcludedEnd)
		if err != nil {
			return aggregation.Calendar{}, fmt.Errorf("invalid excluded window: %w", err)
		}
		cal.Excluded = excluded
	}
	return cal, nil
}

// DefaultRange returns the range used when a request carries no dates.
func (p ParkingConfig) DefaultRange() (models.TimeRange, error) {
	start, err := time.Parse(time.RFC3339, p.DefaultRangeStart)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("invalid parking.default_range_start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, p.DefaultRangeEnd)
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("invalid parking.default_range_end: %w", err)
	}
	return models.TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// CacheTTLDuration returns the response cache TTL. Zero disables caching.
func (p ParkingConfig) CacheTTLDuration() (time.Duration, error) {
	return parseDuration("parking.cache_ttl", p.CacheTTL)
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, value)
	}
	return d, nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "pavement")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_conns", 10)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "pavement-api")
	v.SetDefault("telemetry.service_version", "1.0.0")
	v.SetDefault("telemetry.exporter", "otlp")

	// Parking
	v.SetDefault("parking.timezone", "America/New_York")
	v.SetDefault("parking.excluded_start", "02:00")
	v.SetDefault("parking.excluded_end", "09:00")
	v.SetDefault("parking.carry_over_start", "00:00")
	v.SetDefault("parking.carry_over_end", "02:00")
	v.SetDefault("parking.exclude_off_hours", true)
	v.SetDefault("parking.total_spaces", 3693)
	v.SetDefault("parking.default_range_start", "2016-01-01T00:00:00Z")
	v.SetDefault("parking.default_range_end", "2019-01-01T00:00:00Z")
	v.SetDefault("parking.cache_ttl", "10m")
}
