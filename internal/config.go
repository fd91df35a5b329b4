package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Reminder      ReminderConfig      `mapstructure:"reminder"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig holds the HMAC secrets for access and refresh tokens.
// The two secrets must differ so a refresh token is never accepted as an access token.
type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	ApprovedTTL time.Duration `mapstructure:"approved_ttl"`
}

type NotificationConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	FromName       string `mapstructure:"from_name"`
	MaxWorkers     int    `mapstructure:"max_workers"`
	JobQueueSize   int    `mapstructure:"job_queue_size"`
}

type ReminderConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfigFromEnv builds the configuration from plain environment variables,
// used for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			AccessTokenSecret:    getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshTokenSecret:   getEnv("REFRESH_TOKEN_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
		},
		Redis: RedisConfig{
			Enabled:     getEnvAsBool("REDIS_ENABLED", false),
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			ApprovedTTL: getEnvAsDuration("REDIS_APPROVED_TTL", time.Minute),
		},
		Notification: NotificationConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("NOTIFICATION_FROM_EMAIL", "gatepass@campus.local"),
			FromName:       getEnv("NOTIFICATION_FROM_NAME", "Gate Pass"),
			MaxWorkers:     getEnvAsInt("NOTIFICATION_MAX_WORKERS", 4),
			JobQueueSize:   getEnvAsInt("NOTIFICATION_JOB_QUEUE_SIZE", 100),
		},
		Reminder: ReminderConfig{
			Schedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Path: getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Redis.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("redis config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.AccessTokenDuration <= 0 || c.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}
	return nil
}

func (c *RedisConfig) Validate() error {
	if c.Enabled && c.Addr == "" {
		return errors.New("addr is required when redis is enabled")
	}
	return nil
}

func (c *NotificationConfig) Validate() error {
	if c.SendGridAPIKey != "" && c.FromEmail == "" {
		return errors.New("from_email is required when sendgrid is configured")
	}
	return nil
}
