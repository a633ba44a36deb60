package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application. Values are loaded
// from environment variables, optionally seeded from a .env file.
type AppConfig struct {
	// Core settings
	Port           string
	DatabasePath   string
	LogLevel       string
	MigrationsPath string
	FrontendURL    string

	// Aggregation settings
	BaseCurrency        string
	RateRefreshInterval time.Duration
}

// Cfg is the global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env
// file. Call once at startup, before anything reads Cfg.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	Cfg = &AppConfig{
		Port:                getEnv("PORT", "8080"),
		DatabasePath:        getEnv("DATABASE_PATH", "./moneyflow.db"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		MigrationsPath:      getEnv("MIGRATIONS_PATH", "file://db/migrations"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		BaseCurrency:        getEnv("BASE_CURRENCY", "EUR"),
		RateRefreshInterval: getEnvDuration("RATE_REFRESH_INTERVAL", 6*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s (%q), using default %s", key, value, fallback)
		return fallback
	}
	return d
}
