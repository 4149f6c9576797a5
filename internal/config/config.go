package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Addr           string `env:"ADDR" envDefault:":8080"`
	DatabasePath   string `env:"DATABASE_PATH" envDefault:"data/wedding.db"`
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"invites@example.com"`
	EmailFromName  string `env:"EMAIL_FROM_NAME" envDefault:"The Happy Couple"`
	SecureCookies  bool   `env:"SECURE_COOKIES" envDefault:"false"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig loads configuration from the environment, reading an
// optional .env file first. Missing variables fall back to defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
