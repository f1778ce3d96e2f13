package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds server configuration, loaded from the environment with an
// optional .env file. Command-line flags in cmd/server override these values.
type AppConfig struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

func Load() AppConfig {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("[cfg] no .env file loaded: %v", err)
	}

	get := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}

	port, err := strconv.Atoi(get("PORT", "8080"))
	if err != nil {
		log.Printf("[cfg] invalid PORT, falling back to 8080: %v", err)
		port = 8080
	}

	cfg := AppConfig{
		Port:   port,
		DBPath: get("DB_PATH", "cropbook.db"),
		AllowedOrigins: strings.Split(
			get("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080"), ","),
	}
	return cfg
}
