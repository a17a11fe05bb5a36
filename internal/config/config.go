package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	LogLevel        zerolog.Level
	LogFormat       string

	DatabaseDriver string
	DatabaseURL    string
	TablePrefix    string

	// RedisURL is optional. Without it sharing is disabled and role lookups
	// are cached in memory only.
	RedisURL  string
	KeyPrefix string

	IdPJWKSURL       string
	IdPIssuer        string
	IdPAPIURL        string
	IdPSecretKey     string
	IdPOAuthProvider string

	DiscordAPIURL   string
	RequiredGuildID string
	RequiredRoleID  string
	DemoMode        bool

	ProfileAPIURL    string
	ProfileTimeout   time.Duration
	PlayerCacheTTL   time.Duration
	PlayerCacheSweep time.Duration
	RoleCacheTTL     time.Duration
	ShareTTL         time.Duration

	DefaultPageSize int
	MaxPageSize     int
	StatsInterval   time.Duration
	FeedInterval    time.Duration

	TelegramBotToken  string
	TelegramWebAppURL string
}

// Load reads the server configuration from the environment. A .env file in
// the working directory is applied first when present.
func Load() (*Config, error) {
	cfg, err := LoadTools()
	if err != nil {
		return nil, err
	}
	if cfg.IdPJWKSURL == "" {
		return nil, errors.New("IDP_JWKS_URL: required")
	}
	if !cfg.DemoMode && (cfg.RequiredGuildID == "" || cfg.RequiredRoleID == "" || cfg.IdPSecretKey == "") {
		return nil, errors.New("REQUIRED_GUILD_ID, REQUIRED_ROLE_ID and IDP_SECRET_KEY are required unless DEMO_MODE is set")
	}
	return cfg, nil
}

// LoadTools is Load without the identity provider settings, for operator
// tools that talk to the database directly.
func LoadTools() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		ListenAddr:        getEnvDefault("LISTEN_ADDR", ":9090"),
		LogFormat:         strings.ToLower(getEnvDefault("LOG_FORMAT", "json")),
		DatabaseDriver:    strings.ToLower(getEnvDefault("DATABASE_DRIVER", "mysql")),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		TablePrefix:       getEnvDefault("TABLE_PREFIX", "litebans_"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KeyPrefix:         getEnvDefault("KEY_PREFIX", "www-litebans"),
		IdPJWKSURL:        os.Getenv("IDP_JWKS_URL"),
		IdPIssuer:         os.Getenv("IDP_ISSUER"),
		IdPAPIURL:         getEnvDefault("IDP_API_URL", "https://api.clerk.com"),
		IdPSecretKey:      os.Getenv("IDP_SECRET_KEY"),
		IdPOAuthProvider:  getEnvDefault("IDP_OAUTH_PROVIDER", "oauth_discord"),
		DiscordAPIURL:     getEnvDefault("DISCORD_API_URL", "https://discord.com/api"),
		RequiredGuildID:   os.Getenv("REQUIRED_GUILD_ID"),
		RequiredRoleID:    os.Getenv("REQUIRED_ROLE_ID"),
		ProfileAPIURL:     getEnvDefault("PROFILE_API_URL", "https://api.restfulmc.cc"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebAppURL: os.Getenv("TELEGRAM_WEBAPP_URL"),
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(getEnvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("LOG_FORMAT: unsupported format %q, expected json or console", cfg.LogFormat)
	}

	switch cfg.DatabaseDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL: required")
	}

	if cfg.DemoMode, err = getEnvBool("DEMO_MODE", false); err != nil {
		return nil, fmt.Errorf("DEMO_MODE: %w", err)
	}

	durations := []struct {
		key string
		dst *time.Duration
		def time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout, 10 * time.Second},
		{"PROFILE_TIMEOUT", &cfg.ProfileTimeout, 5 * time.Second},
		{"PLAYER_CACHE_TTL", &cfg.PlayerCacheTTL, 24 * time.Hour},
		{"PLAYER_CACHE_SWEEP", &cfg.PlayerCacheSweep, time.Hour},
		{"ROLE_CACHE_TTL", &cfg.RoleCacheTTL, 5 * time.Minute},
		{"SHARE_TTL", &cfg.ShareTTL, time.Hour},
		{"STATS_INTERVAL", &cfg.StatsInterval, 5 * time.Minute},
		{"FEED_INTERVAL", &cfg.FeedInterval, 10 * time.Second},
	}
	for _, d := range durations {
		if *d.dst, err = getEnvDuration(d.key, d.def); err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	if cfg.DefaultPageSize, err = getEnvInt("DEFAULT_PAGE_SIZE", 10); err != nil {
		return nil, fmt.Errorf("DEFAULT_PAGE_SIZE: %w", err)
	}
	if cfg.MaxPageSize, err = getEnvInt("MAX_PAGE_SIZE", 100); err != nil {
		return nil, fmt.Errorf("MAX_PAGE_SIZE: %w", err)
	}
	if cfg.DefaultPageSize < 1 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, fmt.Errorf("page sizes: need 1 <= DEFAULT_PAGE_SIZE (%d) <= MAX_PAGE_SIZE (%d)", cfg.DefaultPageSize, cfg.MaxPageSize)
	}

	return cfg, nil
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q (use Go format: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be > 0, got %q", val)
	}
	return d, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", val)
	}
	return b, nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unsupported level %q, expected debug, info, warn or error", level)
	}
	return lvl, nil
}
