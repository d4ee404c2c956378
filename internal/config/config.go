// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Telegram
	TelegramBotToken string
	TelegramChatID   string

	// Admin
	AdminAPIKey string

	// Contact form rate limit（スライディングウィンドウ）
	ContactRateWindow time.Duration
	ContactRateLimit  int

	// Rate Limit（API全般、IPごと req/min）
	RateLimitGeneral int

	// Redis（未設定の場合はインメモリストアで動作する）
	RedisURL string

	// SMTP（未設定の場合はメール通知を行わない）
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	ContactEmail string

	// Page views
	PageViewRetentionDays int

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string
	StaticDir   string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// TELEGRAM_BOT_TOKENは任意だが、未設定の場合Telegramログインと
// Telegram通知は無効になる（呼び出し側で起動時に警告ログを出すこと）。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.AdminAPIKey = os.Getenv("ADMIN_API_KEY")
	cfg.ContactRateWindow = getEnvDuration("CONTACT_RATE_WINDOW", 600*time.Second)
	cfg.ContactRateLimit = getEnvInt("CONTACT_RATE_LIMIT", 3)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.ContactEmail = os.Getenv("CONTACT_EMAIL")
	cfg.PageViewRetentionDays = getEnvInt("PAGEVIEW_RETENTION_DAYS", 90)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9091")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.ServerPort)
	cfg.StaticDir = os.Getenv("STATIC_DIR")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// TelegramEnabled はTelegram連携（ログイン検証と通知）が有効かどうかを返す。
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.TelegramBotToken) != ""
}

// MailEnabled はメール通知が有効かどうかを返す。
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.ContactEmail != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// "600" のような秒数指定も受け付ける
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
