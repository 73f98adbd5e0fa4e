package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DBUrl          string
	JWTSecret      string
	AppEnv         string
	AllowedOrigins string
	AdminEmail     string
	DashboardURL   string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:           getEnv("PORT", "3001"),
		DBUrl:          getEnv("DB_URL", ""),
		JWTSecret:      jwtSecret,
		AppEnv:         normalizeEnv(getEnv("APP_ENV", "production")),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		AdminEmail:     getEnv("ADMIN_EMAIL", ""),
		DashboardURL:   getEnv("ADMIN_DASHBOARD_URL", "http://localhost:3000"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPass:       getEnv("SMTP_PASS", ""),
	}, nil
}

// EmailEnabled reports whether admin email notifications are configured.
// A missing admin address or SMTP host is a disabled feature, not an error.
func (c *Config) EmailEnabled() bool {
	return c != nil && c.AdminEmail != "" && c.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
