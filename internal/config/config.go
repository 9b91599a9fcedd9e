package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sjperalta/roimob-api/internal/projection"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpirationHours int

	// Storage
	StoragePath     string
	ReportRetention time.Duration

	// Background Workers
	WorkerCount int

	// CORS
	AllowedOrigins []string

	// Email (Resend)
	ResendAPIKey             string
	FromEmail                string
	EnableEmailNotifications bool

	// Public report links
	PublicBaseURL string
	ShareLinkTTL  time.Duration

	// Sentry
	SentryDSN string

	Engine EngineConfig
	Index  IndexConfig
}

// EngineConfig tunes the projection engine.
type EngineConfig struct {
	ApplyROIFloor     bool    `env:"APPLY_ROI_FLOOR" envDefault:"true"`
	ROIFloor          float64 `env:"ROI_FLOOR" envDefault:"12"`
	ClampIncomeTax    bool    `env:"CLAMP_INCOME_TAX" envDefault:"true"`
	MaxSeriesYears    int     `env:"MAX_SERIES_YEARS" envDefault:"30"`
	RentalSeriesYears int     `env:"RENTAL_SERIES_YEARS" envDefault:"10"`
}

// Options converts the settings to engine options.
func (c EngineConfig) Options() projection.Options {
	return projection.Options{
		ApplyROIFloor:     c.ApplyROIFloor,
		ROIFloor:          c.ROIFloor,
		ClampIncomeTax:    c.ClampIncomeTax,
		MaxSeriesYears:    c.MaxSeriesYears,
		RentalSeriesYears: c.RentalSeriesYears,
	}
}

// IndexConfig configures collection of economic indexes from the Central Bank (BCB SGS).
type IndexConfig struct {
	Enabled              bool          `env:"INDEX_COLLECTION_ENABLED" envDefault:"true"`
	BaseURL              string        `env:"BCB_BASE_URL" envDefault:"https://api.bcb.gov.br/dados/serie"`
	SOAPURL              string        `env:"BCB_SOAP_URL" envDefault:"https://www3.bcb.gov.br/wssgs/services/FachadaWSSGS"`
	Timeout              time.Duration `env:"BCB_TIMEOUT" envDefault:"10s"`
	Timezone             string        `env:"INDEX_TIMEZONE" envDefault:"America/Sao_Paulo"`
	MonthlyCron          string        `env:"INDEX_MONTHLY_CRON" envDefault:"0 9 10 * *"`
	WeeklyCron           string        `env:"INDEX_WEEKLY_CRON" envDefault:"0 8 * * 1"`
	HistoryMonths        int           `env:"INDEX_HISTORY_MONTHS" envDefault:"24"`
	RefreshPoints        int           `env:"INDEX_REFRESH_POINTS" envDefault:"3"`
	RecalculateOnCollect bool          `env:"RECALCULATE_ON_COLLECT" envDefault:"false"`
	LogLevel             string        `env:"INDEX_LOG_LEVEL" envDefault:"info"`
}

// Location returns the timezone used by the collection schedule.
func (c IndexConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                     getEnv("PORT", "8080"),
		Environment:              getEnv("ENVIRONMENT", "development"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTExpirationHours:       getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		StoragePath:              getEnv("STORAGE_PATH", "./storage"),
		ReportRetention:          time.Duration(getEnvAsInt("REPORT_RETENTION_DAYS", 30)) * 24 * time.Hour,
		WorkerCount:              getEnvAsInt("WORKER_COUNT", 5),
		AllowedOrigins:           getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		ResendAPIKey:             getEnv("RESEND_API_KEY", ""),
		FromEmail:                getEnv("FROM_EMAIL", "noreply@roimob.com.br"),
		EnableEmailNotifications: getEnvAsBool("ENABLE_EMAIL_NOTIFICATIONS", true),
		PublicBaseURL:            strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		ShareLinkTTL:             time.Duration(getEnvAsInt("SHARE_LINK_TTL_DAYS", 30)) * 24 * time.Hour,
		SentryDSN:                getEnv("SENTRY_DSN", ""),
	}

	if err := env.Parse(&cfg.Engine); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if err := env.Parse(&cfg.Index); err != nil {
		return nil, fmt.Errorf("index config: %w", err)
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.Engine.ApplyROIFloor && cfg.Engine.ROIFloor < 0 {
		return nil, fmt.Errorf("ROI_FLOOR must not be negative")
	}

	return cfg, nil
}

// IsProduction reports whether the API runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool reads an environment variable as boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
