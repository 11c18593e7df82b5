// Package config sources runtime settings from the environment, with a local
// .env file honored for development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultDBPath = "./quotecore.db"
	defaultPort   = "8080"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath string
	Port   string
	Env    string
}

// Load reads environment variables and returns a populated Config. A missing
// .env file is not an error; production injects real environment variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DBPath: getEnv("DB_PATH", defaultDBPath),
		Port:   getEnv("PORT", defaultPort),
		Env:    getEnv("APP_ENV", "development"),
	}
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool {
	return c.Env != "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
