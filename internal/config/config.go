package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration read once at startup.
type Config struct {
	Port        string
	DatabaseURL string

	// OpenAI provider. An empty key leaves the service in a degraded
	// mode: generation endpoints fail with a configuration error while
	// read paths keep working.
	OpenAIKey     string
	OpenAIBaseURL string

	CORSOrigins []string
}

// Load reads configuration from the environment. A .env file is loaded
// first if present (development convenience); real environment
// variables win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		OpenAIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
	}

	cfg.CORSOrigins = []string{"http://localhost:3000"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
