package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string
	// Origins allowed to call the API from a browser
	CORSOrigins []string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// Groq chat completions
	GroqAPIKeys []string
	GroqAPIURL  string

	// Challenge archive, disabled when ArchiveBucket is empty
	ArchiveBucket string
	AWSRegion     string

	Diet *DietConfig
}

// DSN returns the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	var source func(name string) string
	switch env {
	case CI:
		source = fromEnv
	case Development, Test, Production:
		source = fromSecretOrEnv
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	if err := load(cfg, source); err != nil {
		return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
	}

	diet, err := LoadDietConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load diet configuration: %w", err)
	}
	cfg.Diet = diet

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func load(cfg *Config, get func(name string) string) error {
	cfg.ServerPort = withDefault(get("server_port"), "8080")
	cfg.ServerHost = withDefault(get("server_host"), "0.0.0.0")
	cfg.CORSOrigins = splitList(withDefault(get("cors_origins"), "http://localhost:5173"))
	cfg.DBHost = get("db_host")
	cfg.DBPort = withDefault(get("db_port"), "5432")
	cfg.DBUser = get("db_user")
	cfg.DBPassword = get("db_password")
	cfg.DBName = withDefault(get("db_name"), "dietvite")
	cfg.DBSSLMode = withDefault(get("db_ssl_mode"), "disable")
	cfg.RedisHost = get("redis_host")
	cfg.RedisPort = withDefault(get("redis_port"), "6379")
	cfg.RedisPassword = get("redis_password")
	cfg.RedisURL = get("redis_url")
	cfg.JWTSecret = get("jwt_secret")
	cfg.GroqAPIURL = withDefault(get("groq_api_url"), "https://api.groq.com/openai/v1/chat/completions")
	cfg.ArchiveBucket = get("s3_bucket_name")
	cfg.AWSRegion = get("aws_region")

	if db := get("redis_db"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return fmt.Errorf("invalid redis_db %q: %w", db, err)
		}
		cfg.RedisDB = n
	}

	// API keys are a JSON array, e.g. ["gsk_a", "gsk_b"]
	if keys := get("groq_api_keys"); keys != "" {
		if err := json.Unmarshal([]byte(keys), &cfg.GroqAPIKeys); err != nil {
			return fmt.Errorf("invalid groq_api_keys: %w", err)
		}
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fromEnv reads NAME for a secret called name
func fromEnv(name string) string {
	return strings.TrimSpace(os.Getenv(strings.ToUpper(name)))
}

// fromSecretOrEnv prefers a Docker secret and falls back to the environment
func fromSecretOrEnv(name string) string {
	if v := readSecret(name); v != "" {
		return v
	}
	return fromEnv(name)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
