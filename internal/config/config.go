package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type ZenopayConfig struct {
	BaseURL       string
	APIKey        string
	WebhookURL    string
	WebhookSecret string
}

type Config struct {
	PostgresDSN string
	// RedisAddr and KafkaBrokers may be empty: the service then runs with an
	// in-process cache and without event publishing.
	RedisAddr    string
	KafkaBrokers []string
	JWTSecret    string
	HTTPAddr     string
	Zenopay      ZenopayConfig
	PollBudget   time.Duration
	LogLevel     slog.Level
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKER")),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		HTTPAddr:     os.Getenv("HTTP_ADDR"),
		Zenopay: ZenopayConfig{
			BaseURL:       os.Getenv("ZENOPAY_BASE_URL"),
			APIKey:        os.Getenv("ZENOPAY_API_KEY"),
			WebhookURL:    os.Getenv("ZENOPAY_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		},
		PollBudget: 3 * time.Minute,
		LogLevel:   slog.LevelInfo,
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=vitabu sslmode=disable"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Zenopay.BaseURL == "" {
		cfg.Zenopay.BaseURL = "https://zenoapi.com"
	}
	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET is not set, all authenticated requests will be rejected")
	}
	if cfg.Zenopay.WebhookSecret == "" {
		slog.Warn("WEBHOOK_SECRET is not set, provider webhooks will be rejected")
	}

	if raw := os.Getenv("POLL_BUDGET"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.PollBudget = d
		} else {
			slog.Warn("invalid POLL_BUDGET, using default", "value", raw, "default", cfg.PollBudget)
		}
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			slog.Warn("invalid LOG_LEVEL, using info", "value", raw)
			cfg.LogLevel = slog.LevelInfo
		}
	}

	slog.Info("config loaded",
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"http_addr", cfg.HTTPAddr,
		"zenopay_base_url", cfg.Zenopay.BaseURL,
		"poll_budget", cfg.PollBudget,
	)
	return cfg
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
