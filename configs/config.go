package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port                string
	Environment         string
	AllowedOrigin       string
	AdminUsername       string
	AdminPassword       string
	AdminRateLimitRPS   float64
	AdminRateLimitBurst int
	Weather             *WeatherAPIConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		AllowedOrigin:       getEnv("ALLOWED_ORIGIN", "https://bshs.eq.edu.au"),
		AdminUsername:       getEnv("ADMIN_USERNAME", ""),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		AdminRateLimitRPS:   getEnvFloat("ADMIN_RATE_LIMIT_RPS", 0.2),
		AdminRateLimitBurst: getEnvInt("ADMIN_RATE_LIMIT_BURST", 3),
		Weather:             GetWeatherAPIConfig(),
	}
}

// IsProduction reports whether the service runs in a production-like environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}
