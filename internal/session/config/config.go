package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

// Config holds all configuration for the session client.
type Config struct {
	// Remote API
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	RateLimitRPS   float64       `env:"API_RATE_LIMIT_RPS" envDefault:"0"` // 0 disables the limiter
	RateLimitBurst int           `env:"API_RATE_LIMIT_BURST" envDefault:"5"`

	// Persisted storage
	StorageBackend       string `env:"STORAGE_BACKEND" envDefault:"file"`
	TokenKey             string `env:"STORAGE_TOKEN_KEY" envDefault:"flashcards_token"`
	UserKey              string `env:"STORAGE_USER_KEY" envDefault:"flashcards_user"`
	StorageFilePath      string `env:"STORAGE_FILE_PATH" envDefault:".flashcards/session.json"`
	StorageEncryptionKey string `env:"STORAGE_ENCRYPTION_KEY"` // hex, 64 chars

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"flashcards:"`

	MongoDBURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase   string `env:"MONGODB_DATABASE" envDefault:"flashcards_client"`
	MongoCollection string `env:"MONGODB_COLLECTION" envDefault:"session_storage"`

	// Local gateway
	GatewayHost    string `env:"GATEWAY_HOST" envDefault:"localhost"`
	GatewayPort    string `env:"GATEWAY_PORT" envDefault:"3001"`
	AllowedOrigins string `env:"GATEWAY_ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// ScreenRules overrides screen access expressions, e.g. "admin=>user.role == 'ADMIN';quiz=>session.authenticated".
	ScreenRules map[string]string `env:"SCREEN_RULES" envSeparator:";" envKeyValSeparator:"=>"`
}

// LoadConfig loads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base_url must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")

	if c.HTTPTimeout <= 0 {
		return errors.New("http_timeout must be positive")
	}
	if c.RateLimitRPS < 0 {
		return errors.New("api_rate_limit_rps cannot be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return errors.New("api_rate_limit_burst must be at least 1 when rate limiting is enabled")
	}

	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case StorageMemory, StorageRedis, StorageMongo:
	case StorageFile:
		if c.StorageFilePath == "" {
			return errors.New("storage_file_path is required for the file backend")
		}
	default:
		return fmt.Errorf("storage_backend must be one of memory, file, redis, mongo; got %q", c.StorageBackend)
	}

	if c.TokenKey == "" || c.UserKey == "" {
		return errors.New("storage token and user keys cannot be empty")
	}
	if c.TokenKey == c.UserKey {
		return errors.New("storage token and user keys must differ")
	}

	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	return nil
}

// EncryptionKey decodes STORAGE_ENCRYPTION_KEY. It returns nil when none is configured.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.StorageEncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.StorageEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("storage_encryption_key must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("storage_encryption_key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// GatewayAddr is the listen address of the local gateway.
func (c *Config) GatewayAddr() string {
	return net.JoinHostPort(c.GatewayHost, c.GatewayPort)
}
