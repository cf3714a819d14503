package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Port        string
	MetricsPort string
	LogLevel    string
	Store       StoreConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	CORS        CORSConfig
	Categories  CategoryConfig
}

type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type DatabaseConfig struct {
	URL               string
	Host              string
	Port              string
	Name              string
	User              string
	Password          string
	SSLMode           string
	MaxOpenConns      int
	MigrationsEnabled bool
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	// InternalAPIKey is either the shared secret itself or its bcrypt hash.
	InternalAPIKey string
}

type CategoryConfig struct {
	// AllowSystemDetach lets a refrigerator drop its link to a system
	// category. The category row itself is never deleted.
	AllowSystemDetach bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "3001"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnv("DB_PORT", "5432"),
			Name:              getEnv("DB_NAME", "refrigerator"),
			User:              getEnv("DB_USER", "refrigerator"),
			Password:          getEnv("DB_PASSWORD", "refrigerator"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:      getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MigrationsEnabled: getEnvBool("MIGRATIONS_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer:      getEnv("AUTH_JWT_ISSUER", ""),
			InternalAPIKey: getEnv("INTERNAL_API_KEY", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: allowedOrigins(
				getEnv("FRONTEND_URL", "http://localhost:3000"),
				getEnv("CORS_ALLOWED_ORIGINS", ""),
			),
		},
		Categories: CategoryConfig{
			AllowSystemDetach: getEnvBool("CATEGORY_ALLOW_SYSTEM_DETACH", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required in production")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the DB_* parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func allowedOrigins(frontendURL, extra string) []string {
	seen := map[string]bool{}
	var origins []string
	for _, origin := range append([]string{frontendURL}, strings.Split(extra, ",")...) {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
