package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Email    EmailConfig
	Geo      GeoConfig
	Jobs     JobsConfig
}

type DatabaseConfig struct {
	URL               string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port                   string
	Env                    string
	LogLevel               string
	AllowedOrigins         []string
	TrustedProxies         []string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	APIRateLimit           int
	APIRateLimitWindow     time.Duration
	AuthRateLimitPerMinute int
}

type AuthConfig struct {
	JWTSecret            string
	MaxFailedLogins      int
	FailureDelayBaseMs   int
	FailureDelayRandomMs int
	AdminEmail           string
	AdminPassword        string
}

type SessionConfig struct {
	Store    string // "postgres" or "redis"
	RedisURL string
}

type EmailConfig struct {
	Provider      string // "ses", "smtp" or "log"
	FromAddress   string
	PlatformName  string
	DomainName    string
	AWSRegion     string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	RatePerSecond float64
	QueueSize     int
	Workers       int
}

type GeoConfig struct {
	BaseURL string
	Timeout time.Duration
}

type JobsConfig struct {
	CleanupSchedule string
}

// IsProduction reports whether the process runs against live infrastructure.
func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", EnvDevelopment)

	cfg := &Config{
		Database: DatabaseConfig{
			URL:               getEnv("DATABASE_URL", ""),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "tipoca"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:                   getEnv("PORT", "8080"),
			Env:                    env,
			LogLevel:               getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:         parseAllowedOrigins(env),
			TrustedProxies:         splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:            getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:           getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:            getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			APIRateLimit:           getEnvAsInt("API_RATE_LIMIT", 100),
			APIRateLimitWindow:     getEnvAsDuration("API_RATE_LIMIT_WINDOW", 15*time.Minute),
			AuthRateLimitPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 10),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			MaxFailedLogins:      getEnvAsInt("MAX_FAILED_LOGINS", 5),
			FailureDelayBaseMs:   getEnvAsInt("FAILURE_DELAY_BASE_MS", 100),
			FailureDelayRandomMs: getEnvAsInt("FAILURE_DELAY_RANDOM_MS", 100),
			AdminEmail:           getEnv("ADMIN_EMAIL", ""),
			AdminPassword:        getEnv("ADMIN_PASSWORD", ""),
		},
		Session: SessionConfig{
			Store:    strings.ToLower(getEnv("SESSION_STORE", "postgres")),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		Email: EmailConfig{
			Provider:      strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			FromAddress:   getEnv("EMAIL_FROM", "no-reply@localhost"),
			PlatformName:  getEnv("PLATFORM_NAME", "Tipoca"),
			DomainName:    getEnv("DOMAIN_NAME", "localhost:8080"),
			AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername:  getEnv("SMTP_USERNAME", ""),
			SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
			RatePerSecond: getEnvAsFloat("EMAIL_RATE_PER_SECOND", 10),
			QueueSize:     getEnvAsInt("EMAIL_QUEUE_SIZE", 256),
			Workers:       getEnvAsInt("EMAIL_WORKERS", 2),
		},
		Geo: GeoConfig{
			BaseURL: getEnv("GEO_BASE_URL", "http://ip-api.com"),
			Timeout: getEnvAsDuration("GEO_TIMEOUT", 10*time.Second),
		},
		Jobs: JobsConfig{
			CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@every 10m"),
		},
	}

	if cfg.Database.URL == "" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD or DATABASE_URL is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.MaxFailedLogins < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGINS must be at least 1 (got %d)", cfg.Auth.MaxFailedLogins)
	}

	switch cfg.Session.Store {
	case "postgres":
	case "redis":
		if cfg.Session.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("SESSION_STORE must be postgres or redis (got %q)", cfg.Session.Store)
	}

	switch cfg.Email.Provider {
	case "ses", "log":
	case "smtp":
		if cfg.Email.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be ses, smtp or log (got %q)", cfg.Email.Provider)
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == EnvProduction {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 {
		return origins
	}
	if env == EnvProduction {
		return []string{}
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
