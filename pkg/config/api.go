package config

import "time"

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment     string
	Addr            string
	DatabaseURL     string
	MigrationsDir   string
	JWTSecret       string
	SessionTokenTTL time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:     GetString("APP_ENV", "development"),
		Addr:            GetString("API_ADDR", ":5000"),
		DatabaseURL:     GetString("DATABASE_URL", "postgres://devconnect:devconnect@db:5432/devconnect?sslmode=disable"),
		MigrationsDir:   GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		JWTSecret:       GetString("JWT_SECRET", "supersecuresecret"),
		SessionTokenTTL: time.Duration(GetInt("SESSION_TOKEN_TTL_HOURS", 200)) * time.Hour,
	}
}
