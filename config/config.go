package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL    string
	DBMaxOpenConns int
	Port           string
	GoEnv          string

	// EnvFile is the dotenv file the values were loaded from, empty when only
	// the process environment was used.
	EnvFile string

	Auth0Domain   string
	Auth0Audience string
	JWTSecret     string

	RedisURL string

	WebsocketServerURL      string
	NotificationTimeout     time.Duration
	NotificationConcurrency int
	ProjectionTimeout       time.Duration
	ShutdownTimeout         time.Duration

	AllowedOrigins []string

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	LogLevel  string
	LogFormat string
}

var (
	current   *Config
	currentMu sync.RWMutex
)

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	// Environment-specific file first, then the plain .env. Neither is required:
	// deployed environments set variables directly.
	loaded := ""
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err == nil {
		loaded = envFile
	} else if err := godotenv.Load(); err == nil {
		loaded = ".env"
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:             v.GetString("DATABASE_URL"),
		DBMaxOpenConns:          v.GetInt("DB_MAX_OPEN_CONNS"),
		Port:                    v.GetString("PORT"),
		GoEnv:                   v.GetString("GO_ENV"),
		EnvFile:                 loaded,
		Auth0Domain:             v.GetString("AUTH0_DOMAIN"),
		Auth0Audience:           v.GetString("AUTH0_AUDIENCE"),
		JWTSecret:               v.GetString("JWT_SECRET"),
		RedisURL:                v.GetString("REDIS_URL"),
		WebsocketServerURL:      strings.TrimRight(v.GetString("WEBSOCKET_SERVER_URL"), "/"),
		NotificationTimeout:     parseDuration(v.GetString("NOTIFICATION_TIMEOUT"), 5*time.Second),
		NotificationConcurrency: v.GetInt("NOTIFICATION_CONCURRENCY"),
		ProjectionTimeout:       parseDuration(v.GetString("PROJECTION_TIMEOUT"), 2*time.Second),
		ShutdownTimeout:         parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second),
		AllowedOrigins:          splitAndTrim(v.GetString("ALLOWED_ORIGINS")),
		AWSRegion:               v.GetString("AWS_REGION"),
		AWSS3Bucket:             v.GetString("AWS_S3_BUCKET"),
		AWSAccessKeyID:          v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:      v.GetString("AWS_SECRET_ACCESS_KEY"),
		LogLevel:                v.GetString("LOG_LEVEL"),
		LogFormat:               v.GetString("LOG_FORMAT"),
	}

	if cfg.NotificationConcurrency <= 0 {
		cfg.NotificationConcurrency = 8
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	SetConfig(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GO_ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("NOTIFICATION_TIMEOUT", "5s")
	v.SetDefault("NOTIFICATION_CONCURRENCY", 8)
	v.SetDefault("PROJECTION_TIMEOUT", "2s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" && c.JWTSecret == "" {
		return fmt.Errorf("either AUTH0_DOMAIN or JWT_SECRET is required")
	}
	if c.Auth0Domain != "" && c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required when AUTH0_DOMAIN is set")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == EnvProduction
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == EnvTest
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == EnvDevelopment
}

// NotificationsEnabled reports whether a real-time notification endpoint is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.WebsocketServerURL != ""
}

// S3Enabled reports whether provider document storage can be used.
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// GetConfig returns the most recently loaded configuration.
func GetConfig() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// SetConfig replaces the process configuration (primarily for testing).
func SetConfig(cfg *Config) {
	currentMu.Lock()
	current = cfg
	currentMu.Unlock()
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
