package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Nonce challenges
	NonceStore string // "memory" or "redis"
	NonceTTL   time.Duration

	// Redis (nonce store backing)
	RedisURL      string
	RedisPassword string

	// Hole card storage
	StorageMode     string // "memory", "file" or "postgres"
	HoleCardDir     string
	RetentionMaxAge time.Duration
	RetentionSweep  time.Duration

	// Database (postgres storage mode)
	DatabaseURL      string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string

	// Chain
	RPCURL        string
	TableContract string
	TableID       string
	PollInterval  time.Duration
	MaxSeats      int

	// Operator API key (bcrypt hash); empty disables the check
	AdminAPIKeyHash string
}

const minSessionSecretLen = 32

func Load() *Config {
	return &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		Port: getEnvOrDefault("PORT", "8080"),

		SessionSecret: getEnvOrDefault("SESSION_SECRET", ""),
		SessionTTL:    minutes("SESSION_TTL_MINUTES", 60),

		NonceStore: getEnvOrDefault("NONCE_STORE", "memory"),
		NonceTTL:   seconds("NONCE_TTL_SECONDS", 300),

		RedisURL:      getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		StorageMode:     getEnvOrDefault("STORAGE_MODE", "memory"),
		HoleCardDir:     getEnvOrDefault("HOLE_CARD_DIR", "./data/holecards"),
		RetentionMaxAge: minutes("RETENTION_MAX_AGE_MINUTES", 24*60),
		RetentionSweep:  minutes("RETENTION_SWEEP_MINUTES", 60),

		DatabaseURL:      getEnvOrDefault("DATABASE_URL", ""),
		PostgresDB:       getEnvOrDefault("POSTGRES_DB", "dealer"),
		PostgresUser:     getEnvOrDefault("POSTGRES_USER", "dealer_user"),
		PostgresPassword: getEnvOrDefault("POSTGRES_PASSWORD", "dealer_password"),
		PostgresHost:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvOrDefault("POSTGRES_PORT", "5432"),

		RPCURL:        getEnvOrDefault("RPC_URL", ""),
		TableContract: getEnvOrDefault("TABLE_CONTRACT_ADDRESS", ""),
		TableID:       getEnvOrDefault("TABLE_ID", "1"),
		PollInterval:  seconds("LISTENER_POLL_SECONDS", 5),
		MaxSeats:      intEnv("MAX_SEATS", 6),

		AdminAPIKeyHash: getEnvOrDefault("ADMIN_API_KEY_HASH", ""),
	}
}

// Validate checks the settings that would otherwise fail at an awkward
// moment deep inside a request.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}
	switch c.StorageMode {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("unknown STORAGE_MODE %q", c.StorageMode)
	}
	switch c.NonceStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown NONCE_STORE %q", c.NonceStore)
	}
	// 26 seats of two cards exhausts the deck.
	if c.MaxSeats < 2 || c.MaxSeats > 26 {
		return fmt.Errorf("MAX_SEATS %d out of range [2,26]", c.MaxSeats)
	}
	if c.NonceTTL <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("nonce and session TTLs must be positive")
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDB,
	)
}

// ChainConfigured reports whether the chain collaborator can be built.
func (c *Config) ChainConfigured() bool {
	return c.RPCURL != "" && c.TableContract != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func minutes(key string, defaultValue int) time.Duration {
	return time.Duration(intEnv(key, defaultValue)) * time.Minute
}

func seconds(key string, defaultValue int) time.Duration {
	return time.Duration(intEnv(key, defaultValue)) * time.Second
}
