package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort               = "8080"
	defaultSQLitePath         = "./data/guide.db"
	defaultEmbeddingDimension = 1536
	defaultChatRateLimit      = "30-M"
	defaultEmbedTimeout       = 30 * time.Second
	defaultGenerateTimeout    = 60 * time.Second
	defaultStreamTimeout      = 120 * time.Second
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	cfg := &Config{
		Environment:   getEnv("ENVIRONMENT", "development"),
		Port:          getEnv("PORT", defaultPort),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getEnv("SQLITE_PATH", defaultSQLitePath),
		RedisURL:      os.Getenv("REDIS_URL"),
		ChatRateLimit: getEnv("CHAT_RATE_LIMIT", defaultChatRateLimit),
		CORSOrigins:   splitList(os.Getenv("CORS_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("SUPABASE_CONNECTION_STRING")
	}

	var err error

	if cfg.EmbeddingDimension, err = getInt("EMBEDDING_DIMENSION", defaultEmbeddingDimension); err != nil {
		return nil, err
	}

	if cfg.EmbedTimeout, err = getDuration("EMBED_TIMEOUT", defaultEmbedTimeout); err != nil {
		return nil, err
	}

	if cfg.GenerateTimeout, err = getDuration("GENERATE_TIMEOUT", defaultGenerateTimeout); err != nil {
		return nil, err
	}

	if cfg.StreamTimeout, err = getDuration("STREAM_TIMEOUT", defaultStreamTimeout); err != nil {
		return nil, err
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL (or SUPABASE_CONNECTION_STRING) environment variable is required")
		}
	case StoreDriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.EmbeddingDimension <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return n, nil
}

// accepts Go durations ("45s") or a bare number of seconds
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}

	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
