package utils

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig carries the backend configuration, loaded from environment
// variables (optionally seeded from a .env file by the entrypoint).
type ServerConfig struct {
	// HTTP
	Addr string

	// Database
	DatabasePath string

	// Pairing broker
	AssignmentTTL  time.Duration
	JanitorPeriod  time.Duration
	MaxCodeMinutes int

	// Asset signing
	SignedURLTTL    time.Duration
	StorageEndpoint string
	StorageAccess   string
	StorageSecret   string
	StorageBucket   string
	StorageUseSSL   bool
}

// LoadServerConfig reads the backend configuration from the environment.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		Addr: getenv("ADDR", ":8080"),

		DatabasePath: getenv("DATABASE_PATH", "data/advertcontrol.db"),

		AssignmentTTL:  getdur("ASSIGNMENT_TTL", 10*time.Minute),
		JanitorPeriod:  getdur("JANITOR_PERIOD", time.Minute),
		MaxCodeMinutes: getint("MAX_CODE_MINUTES", 30),

		SignedURLTTL:    getdur("SIGNED_URL_TTL", 15*time.Minute),
		StorageEndpoint: getenv("STORAGE_ENDPOINT", ""),
		StorageAccess:   getenv("STORAGE_ACCESS_KEY", ""),
		StorageSecret:   getenv("STORAGE_SECRET_KEY", ""),
		StorageBucket:   getenv("STORAGE_BUCKET", "screen-assets"),
		StorageUseSSL:   getbool("STORAGE_USE_SSL", false),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
