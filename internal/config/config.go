package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	MigrationsDir string
	JWTSecret     string
	IdentityTTL   time.Duration
	CORSOrigin    string
	// Redis Configuration
	RedisURL string
	// Search
	MeiliURL       string
	MeiliMasterKey string
	// Export archive (MinIO / S3)
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIURL  string
	Token   string
	AppID   string
	Home    string
	LogFile string
}

func Load() Config {
	return Config{
		Addr: getenv("API_ADDR", ":8787"),
		// Empty DATABASE_URL runs the in-memory store.
		DatabaseURL:   getenv("DATABASE_URL", ""),
		MigrationsDir: getenv("PENSION_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:     getenv("PENSION_JWT_SECRET", "pension-dev-secret"),
		IdentityTTL:   time.Duration(getenvInt("PENSION_IDENTITY_TTL_SECONDS", 2592000)) * time.Second,
		CORSOrigin:    getenv("PENSION_CORS_ORIGIN", "*"),
		// Redis - empty runs the in-process feed and identity registry
		RedisURL:       getenv("REDIS_URL", ""),
		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "pension-exports"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),
	}
}

func LoadClient() ClientConfig {
	home := getenv("PENSION_HOME", "")
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, ".pension")
		} else {
			home = ".pension"
		}
	}
	return ClientConfig{
		APIURL:  getenv("PENSION_API_URL", "http://localhost:8787"),
		Token:   getenv("PENSION_TOKEN", ""),
		AppID:   getenv("PENSION_APP_ID", ""),
		Home:    home,
		LogFile: getenv("PENSION_LOG_FILE", filepath.Join(home, "pension.log")),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
