package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	FrontendURL    string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	RedisURL       string

	JWTSecret string
	JWTTTL    time.Duration

	DevSkipOTP         bool
	OTPTTL             time.Duration
	OTPRequestCooldown time.Duration
	StudentEmailDomain string

	MailProvider string
	MailUser     string
	MailPass     string
	MailHost     string
	MailPort     int
	MailSecure   bool
	MailTimeout  time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	BossEmail    string
	BossPassword string
	BossName     string

	StatsCacheTTL time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     getEnv("SQLITE_PATH", "data/cluverse.db"),
		RedisURL:       os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		StudentEmailDomain: strings.ToLower(getEnv("STUDENT_EMAIL_DOMAIN", "learner.manipal.edu")),

		MailProvider: getEnv("MAIL_PROVIDER", "gmail"),
		MailUser:     os.Getenv("MAIL_USER"),
		MailPass:     os.Getenv("MAIL_PASS"),
		MailHost:     os.Getenv("MAIL_HOST"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "cluverse"),

		BossEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("BOSS_EMAIL"))),
		BossPassword: os.Getenv("BOSS_PASSWORD"),
		BossName:     getEnv("BOSS_NAME", "Student Welfare Office"),
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "change-me"
	}

	// Parsing durations
	var err error
	if cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.OTPTTL, err = parseDuration(getEnv("OTP_TTL", "10m")); err != nil {
		return nil, fmt.Errorf("invalid OTP_TTL: %w", err)
	}
	if cfg.OTPRequestCooldown, err = parseDuration(getEnv("OTP_REQUEST_COOLDOWN", "30s")); err != nil {
		return nil, fmt.Errorf("invalid OTP_REQUEST_COOLDOWN: %w", err)
	}
	if cfg.MailTimeout, err = parseDuration(getEnv("MAIL_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid MAIL_TIMEOUT: %w", err)
	}
	if cfg.StatsCacheTTL, err = parseDuration(getEnv("STATS_CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("invalid STATS_CACHE_TTL: %w", err)
	}

	if cfg.DevSkipOTP, err = parseBool(getEnv("DEV_SKIP_OTP", "false")); err != nil {
		return nil, fmt.Errorf("invalid DEV_SKIP_OTP: %w", err)
	}
	if cfg.MailSecure, err = parseBool(getEnv("MAIL_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("invalid MAIL_SECURE: %w", err)
	}
	if cfg.MailPort, err = strconv.Atoi(getEnv("MAIL_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid MAIL_PORT: %w", err)
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q (want postgres or sqlite)", cfg.DatabaseDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.TrimSpace(s))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
