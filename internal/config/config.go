package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 永続化バックエンドの種別
const (
	StateBackendMemory   = "memory"
	StateBackendPostgres = "postgres"
	StateBackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL          string
	ImageBaseURL        string
	APITimeout          time.Duration
	APIRateLimit        float64 // ディーラーAPIへの送信レート（req/sec）
	LogoutNotifyTimeout time.Duration

	// Session
	StateBackend   string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionMaxAge  int
	SessionIdleTTL time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitLogin   int

	// Slideshow
	SlideshowInterval time.Duration

	// Cleanup
	StateRetentionDays int

	// Server
	ServerPort  string
	BaseURL     string
	LandingPath string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load はカレントディレクトリの.envを読み込んでから、環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom はenvFileを読み込んでから、環境変数からConfigを読み込む。
// envFileが存在しない場合は環境変数だけを使う。既に設定済みの環境変数は上書きしない。
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.StateBackend = strings.ToLower(getEnvString("STATE_BACKEND", StateBackendMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StateBackend == StateBackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch cfg.StateBackend {
	case StateBackendMemory, StateBackendPostgres, StateBackendRedis:
	default:
		return nil, fmt.Errorf("unsupported STATE_BACKEND: %q", cfg.StateBackend)
	}

	// Optional fields with defaults
	cfg.ImageBaseURL = strings.TrimRight(getEnvString("IMAGE_BASE_URL", defaultImageBaseURL(cfg.APIBaseURL)), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)
	cfg.APIRateLimit = getEnvFloat("API_RATE_LIMIT", 20)
	cfg.LogoutNotifyTimeout = getEnvDuration("LOGOUT_NOTIFY_TIMEOUT", 5*time.Second)
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionIdleTTL = getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.SlideshowInterval = getEnvDuration("SLIDESHOW_INTERVAL", 5*time.Second)
	cfg.StateRetentionDays = getEnvInt("STATE_RETENTION_DAYS", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LandingPath = getEnvString("LANDING_PATH", "/home")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// defaultImageBaseURL は画像の配信元の既定値を返す。
// APIが /api 配下にある場合はその親を使う（/storage はAPIと同じホストで配信される）。
func defaultImageBaseURL(apiBaseURL string) string {
	return strings.TrimSuffix(apiBaseURL, "/api")
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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
