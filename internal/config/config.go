package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Tokens
	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	// Cache
	CacheBackend  string // "memory" or "redis"
	RedisAddr     string
	RedisPassword string
	AnalyticsTTL  time.Duration
	CategoriesTTL time.Duration

	// Rate limiting
	RequestsPerMinute int

	// AMQP (optional write-event stream)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finledger.db"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "finledger"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		CacheBackend:  getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		AnalyticsTTL:  getEnvDuration("ANALYTICS_CACHE_TTL", 900*time.Second),
		CategoriesTTL: getEnvDuration("CATEGORIES_CACHE_TTL", 3600*time.Second),

		RequestsPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}

	switch c.CacheBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address cannot be empty when using redis cache backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of [memory redis]", c.CacheBackend))
	}

	if c.AnalyticsTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid analytics cache TTL %v: must be at least 1 second", c.AnalyticsTTL))
	}
	if c.CategoriesTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid categories cache TTL %v: must be at least 1 second", c.CategoriesTTL))
	}

	if c.RequestsPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RequestsPerMinute))
	}

	if c.AMQPURL != "" {
		if !strings.HasPrefix(c.AMQPURL, "amqp://") && !strings.HasPrefix(c.AMQPURL, "amqps://") {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': scheme must be 'amqp' or 'amqps'", c.AMQPURL))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
