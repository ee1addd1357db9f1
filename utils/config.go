package utils

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything main needs to wire the service, read from the
// environment (optionally seeded from a .env file by godotenv).
type Config struct {
	Port           string
	AllowedOrigins string
	TrustedProxies []string // peers allowed to set X-Forwarded-For

	Location    *time.Location
	AmountMin   int64
	AmountMax   int64
	RewardMin   int64
	RewardMax   int64
	NonceTTL    time.Duration
	PayoutTO    time.Duration
	AuthRPS     float64
	SweepPeriod time.Duration

	RewardServiceURL   string
	RewardServiceToken string

	IdentityServiceURL   string
	IdentityServiceToken string
	IdentityProjectName  string

	DatabaseURL string

	R2 R2Config

	MetricsUser string
	MetricsPass string
}

// R2Config is optional; an empty bucket disables catalog publishing.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

func (c R2Config) Enabled() bool {
	return c.Bucket != "" && c.AccountID != ""
}

// LoadConfig reads the environment. Missing required values are collected
// into one error so startup can fail with the full list.
func LoadConfig() (*Config, error) {
	var problems []error

	cfg := &Config{
		Port:           getEnv("PORT", "5200"),
		AllowedOrigins: normalizeOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		TrustedProxies: splitList(os.Getenv("TRUSTED_PROXIES")),

		RewardServiceURL:   strings.TrimRight(os.Getenv("REWARD_SERVICE_URL"), "/"),
		RewardServiceToken: os.Getenv("REWARD_SERVICE_TOKEN"),

		IdentityServiceURL:   strings.TrimRight(os.Getenv("IDENTITY_SERVICE_URL"), "/"),
		IdentityServiceToken: os.Getenv("IDENTITY_SERVICE_TOKEN"),
		IdentityProjectName:  getEnv("IDENTITY_PROJECT_NAME", "Daily Challenges"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},

		MetricsUser: os.Getenv("METRICS_USER"),
		MetricsPass: os.Getenv("METRICS_PASS"),
	}

	if cfg.RewardServiceURL == "" {
		problems = append(problems, errors.New("REWARD_SERVICE_URL environment variable not set"))
	}
	if cfg.RewardServiceToken == "" {
		problems = append(problems, errors.New("REWARD_SERVICE_TOKEN environment variable not set"))
	}
	if cfg.IdentityServiceURL != "" && cfg.IdentityServiceToken == "" {
		problems = append(problems, errors.New("IDENTITY_SERVICE_TOKEN is required when IDENTITY_SERVICE_URL is set"))
	}

	tz := getEnv("CHALLENGE_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		problems = append(problems, fmt.Errorf("CHALLENGE_TIMEZONE %q: %w", tz, err))
		loc = time.UTC
	}
	cfg.Location = loc

	cfg.AmountMin = getInt(&problems, "CHALLENGE_AMOUNT_MIN", 3)
	cfg.AmountMax = getInt(&problems, "CHALLENGE_AMOUNT_MAX", 10)
	cfg.RewardMin = getInt(&problems, "CHALLENGE_REWARD_MIN", 10)
	cfg.RewardMax = getInt(&problems, "CHALLENGE_REWARD_MAX", 100)
	if cfg.AmountMin < 1 || cfg.AmountMax < cfg.AmountMin {
		problems = append(problems, fmt.Errorf("invalid challenge amount range [%d, %d]", cfg.AmountMin, cfg.AmountMax))
	}
	if cfg.RewardMin < 1 || cfg.RewardMax < cfg.RewardMin {
		problems = append(problems, fmt.Errorf("invalid challenge reward range [%d, %d]", cfg.RewardMin, cfg.RewardMax))
	}

	cfg.NonceTTL = getDuration(&problems, "NONCE_TTL", 5*time.Minute)
	cfg.PayoutTO = getDuration(&problems, "PAYOUT_TIMEOUT", 15*time.Second)
	cfg.SweepPeriod = getDuration(&problems, "NONCE_SWEEP_INTERVAL", time.Minute)

	rps, err := strconv.ParseFloat(getEnv("AUTH_RATE_LIMIT", "5"), 64)
	if err != nil || rps <= 0 {
		problems = append(problems, fmt.Errorf("AUTH_RATE_LIMIT must be a positive number"))
	}
	cfg.AuthRPS = rps

	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(problems *[]error, key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		*problems = append(*problems, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getDuration(problems *[]error, key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		*problems = append(*problems, fmt.Errorf("%s must be a positive duration like 30s", key))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeOrigins trims each comma separated origin the way Fiber's CORS
// config expects them.
func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, origin := range parts {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	if len(out) == 0 {
		log.Println("⚠️  ALLOWED_ORIGINS is empty, using default: http://localhost:3000")
		return "http://localhost:3000"
	}
	return strings.Join(out, ",")
}
