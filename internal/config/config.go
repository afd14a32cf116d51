package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned when no token-signing secret is configured
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Mail     MailConfig
	Uploads  UploadsConfig
	Notify   NotifyConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	SignInLimit    int // sign-in attempts per minute per client
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	Schema       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the host:port pair for the redis client
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	Timeout  time.Duration
}

// Enabled reports whether outbound SMTP credentials are present
func (m MailConfig) Enabled() bool {
	return m.Username != "" && m.Password != ""
}

type UploadsConfig struct {
	Dir string
}

// NotifyTrigger selects when a product mutation runs the low-stock scan
type NotifyTrigger string

const (
	TriggerAlways   NotifyTrigger = "always"
	TriggerCrossing NotifyTrigger = "crossing"
)

// NotifyFailure selects how a failed scan affects the mutation response
type NotifyFailure string

const (
	FailurePropagate NotifyFailure = "propagate"
	FailureReport    NotifyFailure = "report"
)

type NotifyConfig struct {
	Threshold       int
	Trigger         NotifyTrigger
	Failure         NotifyFailure
	IsolateFailures bool
}

type LogConfig struct {
	File string
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

// Validate checks values that have no safe default
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingJWTSecret
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	if c.Notify.Threshold < 1 {
		return fmt.Errorf("NOTIFY_THRESHOLD must be at least 1, got %d", c.Notify.Threshold)
	}
	switch c.Notify.Trigger {
	case TriggerAlways, TriggerCrossing:
	default:
		return fmt.Errorf("NOTIFY_TRIGGER must be %q or %q, got %q", TriggerAlways, TriggerCrossing, c.Notify.Trigger)
	}
	switch c.Notify.Failure {
	case FailurePropagate, FailureReport:
	default:
		return fmt.Errorf("NOTIFY_FAILURE must be %q or %q, got %q", FailurePropagate, FailureReport, c.Notify.Failure)
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	return nil
}

// Load reads configuration from .env and the environment
func Load() (*Config, error) {
	// Populate the process environment for tools that bypass viper
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "3001")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_SIGNIN", 10)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_EXPIRY_HOURS", 7*24)
	v.SetDefault("MAIL_HOST", "smtp.gmail.com")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_FROM_NAME", "Edstock - Inventory System")
	v.SetDefault("MAIL_TIMEOUT", "30s")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("NOTIFY_THRESHOLD", 10)
	v.SetDefault("NOTIFY_TRIGGER", string(TriggerAlways))
	v.SetDefault("NOTIFY_FAILURE", string(FailureReport))
	v.SetDefault("NOTIFY_ISOLATE_FAILURES", false)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			SignInLimit:    v.GetInt("RATE_LIMIT_SIGNIN"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Database:     v.GetString("DB_DATABASE"),
			Schema:       v.GetString("DB_SCHEMA"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Expiry: time.Duration(v.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		Mail: MailConfig{
			Host:     v.GetString("MAIL_HOST"),
			Port:     v.GetInt("MAIL_PORT"),
			Username: v.GetString("MAIL_USERNAME"),
			Password: v.GetString("MAIL_PASSWORD"),
			FromName: v.GetString("MAIL_FROM_NAME"),
			Timeout:  v.GetDuration("MAIL_TIMEOUT"),
		},
		Uploads: UploadsConfig{
			Dir: v.GetString("UPLOAD_DIR"),
		},
		Notify: NotifyConfig{
			Threshold:       v.GetInt("NOTIFY_THRESHOLD"),
			Trigger:         NotifyTrigger(strings.ToLower(v.GetString("NOTIFY_TRIGGER"))),
			Failure:         NotifyFailure(strings.ToLower(v.GetString("NOTIFY_FAILURE"))),
			IsolateFailures: v.GetBool("NOTIFY_ISOLATE_FAILURES"),
		},
		Log: LogConfig{
			File: v.GetString("LOG_FILE"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
