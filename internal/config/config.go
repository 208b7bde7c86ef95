// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`

	TextClassifierURL    string `mapstructure:"TEXT_CLASSIFIER_URL"`
	ImageClassifierURL   string `mapstructure:"IMAGE_CLASSIFIER_URL"`
	ClassifierAPIKey     string `mapstructure:"CLASSIFIER_API_KEY"`
	ClassifierMinDelayMS int    `mapstructure:"CLASSIFIER_MIN_DELAY_MS"`

	SweepIntervalSec int `mapstructure:"SWEEP_INTERVAL_SEC"`
	SweepBatchSize   int `mapstructure:"SWEEP_BATCH_SIZE"`
	FieldCooldownMin int `mapstructure:"FIELD_COOLDOWN_MIN"`

	ImageStagingDir      string `mapstructure:"IMAGE_STAGING_DIR"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	TracingEnabled      bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string `mapstructure:"TRACING_EXPORTER"`
	TracingOTLPEndpoint string `mapstructure:"TRACING_OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The config file may not exist yet; environment variables alone are fine.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8460")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "postguard")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("ADMIN_JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("TEXT_CLASSIFIER_URL", "http://localhost:9470")
	viper.SetDefault("IMAGE_CLASSIFIER_URL", "http://localhost:9471")
	viper.SetDefault("CLASSIFIER_API_KEY", "")
	viper.SetDefault("CLASSIFIER_MIN_DELAY_MS", 1000)
	viper.SetDefault("SWEEP_INTERVAL_SEC", 10)
	viper.SetDefault("SWEEP_BATCH_SIZE", 200)
	viper.SetDefault("FIELD_COOLDOWN_MIN", 30)
	viper.SetDefault("IMAGE_STAGING_DIR", "/tmp/postguard/staging")
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4318")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present. A
// misconfigured limiter or loop must fail here, at startup, never mid-sweep.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.TextClassifierURL == "" {
		return errors.New("TEXT_CLASSIFIER_URL is required")
	}
	if c.ImageClassifierURL == "" {
		return errors.New("IMAGE_CLASSIFIER_URL is required")
	}
	if c.ClassifierMinDelayMS < 0 {
		return errors.New("CLASSIFIER_MIN_DELAY_MS must not be negative")
	}
	if c.SweepIntervalSec <= 0 {
		return errors.New("SWEEP_INTERVAL_SEC must be positive")
	}
	if c.SweepBatchSize <= 0 {
		return errors.New("SWEEP_BATCH_SIZE must be positive")
	}
	if c.FieldCooldownMin <= 0 {
		return errors.New("FIELD_COOLDOWN_MIN must be positive")
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction {
		if c.AdminJWTSecret == "your-secret-key-change-in-production" {
			return errors.New("ADMIN_JWT_SECRET must be changed from the default value in production")
		}
		if len(c.AdminJWTSecret) < 32 {
			return errors.New("ADMIN_JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	}

	return nil
}

// ClassifierMinDelay is the limiter's minimum delay between classifier calls.
func (c *Config) ClassifierMinDelay() time.Duration {
	return time.Duration(c.ClassifierMinDelayMS) * time.Millisecond
}

// SweepInterval is the pause between the end of one sweep and the next.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// FieldCooldown is how long a field backs off after malformed content.
func (c *Config) FieldCooldown() time.Duration {
	return time.Duration(c.FieldCooldownMin) * time.Minute
}
