package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Razorpay  RazorpayConfig  `mapstructure:"razorpay"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Business  BusinessConfig  `mapstructure:"business"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type RazorpayConfig struct {
	KeyID     string `mapstructure:"RAZORPAY_KEY_ID"`
	KeySecret string `mapstructure:"RAZORPAY_KEY_SECRET"`
	Currency  string `mapstructure:"RAZORPAY_CURRENCY"`
}

type SchedulerConfig struct {
	SweepCron  string `mapstructure:"SCHEDULER_SWEEP_CRON"`
	PendingTTL string `mapstructure:"SCHEDULER_PENDING_TTL"`
}

type BusinessConfig struct {
	ConvenienceFeeRate string `mapstructure:"CONVENIENCE_FEE_RATE"`
	LockTTL            string `mapstructure:"ASSIGNMENT_LOCK_TTL"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RAZORPAY_CURRENCY", "INR")
	viper.SetDefault("CONVENIENCE_FEE_RATE", "0.03")
	viper.SetDefault("ASSIGNMENT_LOCK_TTL", "10s")
	viper.SetDefault("SCHEDULER_SWEEP_CRON", "0 */15 * * * *")
	viper.SetDefault("SCHEDULER_PENDING_TTL", "30m")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	rate, err := decimal.NewFromString(c.Business.ConvenienceFeeRate)
	if err != nil {
		return fmt.Errorf("CONVENIENCE_FEE_RATE must be a valid decimal: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("CONVENIENCE_FEE_RATE must not be negative")
	}

	if _, err := time.ParseDuration(c.Business.LockTTL); err != nil {
		return fmt.Errorf("ASSIGNMENT_LOCK_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Scheduler.PendingTTL); err != nil {
		return fmt.Errorf("SCHEDULER_PENDING_TTL must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetConvenienceFeeRate returns the online surcharge rate as decimal
func (c *Config) GetConvenienceFeeRate() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.ConvenienceFeeRate)
	return rate
}

// GetLockTTL returns the per-assignment lock expiry as duration
func (c *Config) GetLockTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.LockTTL)
	return ttl
}

// GetPendingTTL returns how long a gateway payment may stay pending
func (c *Config) GetPendingTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Scheduler.PendingTTL)
	return ttl
}
