package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"racoonsmeal/internal/credential"
)

const DefaultAPIURL = "http://localhost:8000"

// ClientConfig configures the racoonsmeal command-line client.
type ClientConfig struct {
	APIURL            string
	RequestTimeout    time.Duration
	CredentialBackend string
	CredentialsDir    string
	RedisURL          string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	UsernameTTL       time.Duration
	LogLevel          string
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	ttl := credential.DefaultTTLs()
	cfg := &ClientConfig{
		APIURL:            strings.TrimRight(getEnv("RACOONSMEAL_API_URL", DefaultAPIURL), "/"),
		RequestTimeout:    getDuration("RACOONSMEAL_TIMEOUT", 30*time.Second),
		CredentialBackend: getEnv("RACOONSMEAL_CREDENTIALS", credential.BackendFile),
		CredentialsDir:    getEnv("RACOONSMEAL_CREDENTIALS_DIR", ""),
		RedisURL:          getEnv("RACOONSMEAL_REDIS_URL", "redis://localhost:6379/0"),
		AccessTTL:         getDuration("RACOONSMEAL_ACCESS_TTL", ttl.Access),
		RefreshTTL:        getDuration("RACOONSMEAL_REFRESH_TTL", ttl.Refresh),
		UsernameTTL:       getDuration("RACOONSMEAL_USERNAME_TTL", ttl.Username),
		LogLevel:          getEnv("LOG_LEVEL", "warn"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("RACOONSMEAL_API_URL cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("RACOONSMEAL_TIMEOUT must be positive")
	}

	switch c.CredentialBackend {
	case credential.BackendFile, credential.BackendRedis, credential.BackendMemory:
	default:
		return fmt.Errorf("RACOONSMEAL_CREDENTIALS must be one of file, redis, memory: got %q", c.CredentialBackend)
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.UsernameTTL <= 0 {
		return fmt.Errorf("credential TTLs must be positive")
	}

	return nil
}

func (c *ClientConfig) TTLs() credential.TTLs {
	return credential.TTLs{Access: c.AccessTTL, Refresh: c.RefreshTTL, Username: c.UsernameTTL}
}

func (c *ClientConfig) CredentialOptions() credential.OpenOptions {
	return credential.OpenOptions{
		Backend:  c.CredentialBackend,
		Dir:      c.CredentialsDir,
		RedisURL: c.RedisURL,
	}
}
