// Package config loads runtime settings from the environment, reading a
// .env file first when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting of the API server.
type Config struct {
	Port        int
	AppEnv      string
	LogLevel    string
	DB          Database
	JWTSecret   string
	JWTTTL      time.Duration
	JWTIssuer   string
	CORSOrigins []string
	AutoMigrate bool
}

// Database describes how to reach Postgres. URL wins over the discrete
// fields when set.
type Database struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the connection string handed to the GORM postgres driver.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:    getenv("APP_ENV", "development"),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTIssuer: getenv("JWT_ISSUER", "todo-backend"),
		DB: Database{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getenv("TODO_DB_HOST", "localhost"),
			Port:     getenv("TODO_DB_PORT", "5432"),
			User:     os.Getenv("TODO_DB_USERNAME"),
			Password: os.Getenv("TODO_DB_PASSWORD"),
			Name:     getenv("TODO_DB_DATABASE", "todo"),
			SSLMode:  getenv("TODO_DB_SSLMODE", "disable"),
		},
		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getenv("PORT", "8080")); err != nil || cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	if cfg.JWTTTL, err = time.ParseDuration(getenv("JWT_TTL", "24h")); err != nil || cfg.JWTTTL <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL %q", os.Getenv("JWT_TTL"))
	}
	if cfg.AutoMigrate, err = strconv.ParseBool(getenv("AUTO_MIGRATE", "true")); err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE %q: %w", os.Getenv("AUTO_MIGRATE"), err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if cfg.DB.URL == "" && cfg.DB.User == "" {
		return nil, fmt.Errorf("either DATABASE_URL or TODO_DB_USERNAME must be set")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimRight(strings.TrimSpace(p), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}
