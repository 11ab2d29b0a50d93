package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// File stores
	DataDir         string
	CredentialsPath string

	// Sessions
	SessionTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Audit trail
	AuditDBPath    string
	AuditRetention time.Duration

	// Worker
	PruneInterval time.Duration

	// Cache
	CacheSize int
	CacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DataDir:         getEnv("DATA_DIR", "./data/records"),
		CredentialsPath: getEnv("CREDENTIALS_PATH", "./data/users.json"),

		SessionTTL: getEnvDuration("SESSION_TTL", 12*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "audit_events"),

		AuditDBPath:    getEnv("AUDIT_DB_PATH", "./data/audit.db"),
		AuditRetention: getEnvDuration("AUDIT_RETENTION", 90*24*time.Hour),

		PruneInterval: getEnvDuration("PRUNE_INTERVAL", time.Hour),

		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate file store paths
	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else if err := ensureDir(c.DataDir); err != nil {
		errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
	}

	if c.CredentialsPath == "" {
		errors = append(errors, "credentials path cannot be empty")
	} else if dir := filepath.Dir(c.CredentialsPath); dir != "." && dir != "" {
		if err := ensureDir(dir); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create credentials directory '%s': %v", dir, err))
		}
	}

	// Validate session TTL
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}

		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate audit trail configuration
	if c.AuditDBPath == "" {
		errors = append(errors, "audit database path cannot be empty")
	} else if dir := filepath.Dir(c.AuditDBPath); dir != "." && dir != "" {
		if err := ensureDir(dir); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create audit database directory '%s': %v", dir, err))
		}
	}

	if c.AuditRetention < time.Hour {
		errors = append(errors, fmt.Sprintf("invalid audit retention %v: must be at least 1 hour", c.AuditRetention))
	}

	if c.PruneInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid prune interval %v: must be at least 1 minute", c.PruneInterval))
	} else if c.PruneInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid prune interval %v: must be at most 24 hours", c.PruneInterval))
	}

	// Validate cache configuration
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	} else if c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 100000", c.CacheSize))
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
