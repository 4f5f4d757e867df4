package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all process-wide settings. It is loaded once at startup
// and passed by reference into the components that need it; nothing
// mutates it afterwards.
type Config struct {
	Port          string
	DBPath        string
	AdminUsername string
	AdminPassword string
	TokenSecret   string
	CORSOrigin    string
	FrontendURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LogLevel      string
	LogFile       string
}

// Load reads configuration from the environment, with optional .env
// support for local development.
func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("SNIPD_DB_PATH", "snipd.db"),
		AdminUsername: getEnv("SNIPD_ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("SNIPD_ADMIN_PASSWORD", ""),
		TokenSecret:   getEnv("JWT_SECRET", "snipd-dev-secret-change-in-production"),
		CORSOrigin:    getEnv("SNIPD_CORS_ORIGIN", "*"),
		FrontendURL:   getEnv("SNIPD_FRONTEND_URL", "http://localhost:5173"),
		RedisAddr:     getEnv("SNIPD_REDIS_ADDR", ""),
		RedisPassword: getEnv("SNIPD_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SNIPD_REDIS_DB", 0),
		LogLevel:      getEnv("SNIPD_LOG_LEVEL", "info"),
		LogFile:       getEnv("SNIPD_LOG_FILE", "logs/snipd.log"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
