package config

import (
	"fmt"
	"os"
	"strconv"
)

// Codebank backend selection values.
const (
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Storage  StorageConfig
	Codebank CodebankConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// StorageConfig holds the object storage settings for the protected file and
// signed download URLs. All of it is required: without a reachable bucket the
// process has nothing to serve.
type StorageConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	FileKey         string // object key of the protected file
	URLTTLSeconds   int    // validity window of signed download URLs
}

// CodebankConfig holds where the codebank record lives.
type CodebankConfig struct {
	Backend     string // s3, postgres, redis or memory
	Key         string // record key (S3 object key / redis key)
	DatabaseURL string // postgres backend only
	RedisAddr   string // redis backend only
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("DOWNLOAD_BUCKET", ""),
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			FileKey:         getEnv("FILE_KEY", ""),
			URLTTLSeconds:   getEnvAsInt("DOWNLOAD_URL_TTL_SECONDS", 5),
		},
		Codebank: CodebankConfig{
			Backend:     getEnv("CODEBANK_BACKEND", BackendS3),
			Key:         getEnv("CODEBANK_KEY", "codebank.json"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("download bucket is required")
	}

	if c.Storage.Region == "" {
		return fmt.Errorf("storage region is required")
	}

	if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
		return fmt.Errorf("storage credentials are required")
	}

	if c.Storage.FileKey == "" {
		return fmt.Errorf("protected file key is required")
	}

	if c.Storage.URLTTLSeconds < 1 {
		return fmt.Errorf("download URL TTL must be at least 1 second")
	}

	switch c.Codebank.Backend {
	case BackendS3, BackendMemory:
	case BackendPostgres:
		if c.Codebank.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if c.Codebank.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid codebank backend: %s (must be s3, postgres, redis or memory)", c.Codebank.Backend)
	}

	if c.Codebank.Key == "" {
		return fmt.Errorf("codebank key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	return nil
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
