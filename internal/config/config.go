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
	Site     SiteConfig
	Fetch    FetchConfig
	Browser  BrowserConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Logging  LoggingConfig
}

type SiteConfig struct {
	Origin           string
	LoginURL         string
	UserSelector     string
	PasswordSelector string
	User             string
	Password         string
}

type FetchConfig struct {
	Strategy       string
	PageTimeout    time.Duration
	ImageTimeout   time.Duration
	Settle         time.Duration
	UserAgent      string
	AcceptLanguage string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	TimezoneID     string
	Locale         string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PollInterval time.Duration
}

type WorkerConfig struct {
	PollInterval time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first and never overrides variables that
// are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	origin := strings.TrimRight(getEnvOrDefault("SITE_ORIGIN", "https://domeggook.com"), "/")

	cfg := &Config{
		Site: SiteConfig{
			Origin:           origin,
			LoginURL:         getEnvOrDefault("SITE_LOGIN_URL", origin+"/login"),
			UserSelector:     getEnvOrDefault("SITE_USER_SELECTOR", "#user_id"),
			PasswordSelector: getEnvOrDefault("SITE_PASSWORD_SELECTOR", "#user_pw"),
			User:             os.Getenv("DOMEGGOOK_ID"),
			Password:         os.Getenv("DOMEGGOOK_PW"),
		},
		Fetch: FetchConfig{
			Strategy:       getEnvOrDefault("FETCH_STRATEGY", "http"),
			PageTimeout:    getDurationOrDefault("FETCH_PAGE_TIMEOUT", 10*time.Second),
			ImageTimeout:   getDurationOrDefault("FETCH_IMAGE_TIMEOUT", 5*time.Second),
			Settle:         getDurationOrDefault("FETCH_SETTLE", 2*time.Second),
			UserAgent:      getEnvOrDefault("FETCH_USER_AGENT", defaultUserAgent),
			AcceptLanguage: getEnvOrDefault("FETCH_ACCEPT_LANGUAGE", "ko-KR,ko;q=0.9,en;q=0.8"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 10*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Seoul"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ko-KR"),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:*", "https://localhost:*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "catalog_scraper"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:     getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:           getIntOrDefault("REDIS_DB", 0),
			PollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
		},
		Worker: WorkerConfig{
			PollInterval: getDurationOrDefault("WORKER_POLL_INTERVAL", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Fetch.Strategy {
	case "http", "session":
	default:
		return fmt.Errorf("FETCH_STRATEGY must be http or session, got %q", c.Fetch.Strategy)
	}

	if c.Fetch.PageTimeout <= 0 {
		return fmt.Errorf("FETCH_PAGE_TIMEOUT must be positive")
	}

	if c.Fetch.ImageTimeout <= 0 {
		return fmt.Errorf("FETCH_IMAGE_TIMEOUT must be positive")
	}

	if !strings.HasPrefix(c.Site.Origin, "http://") && !strings.HasPrefix(c.Site.Origin, "https://") {
		return fmt.Errorf("SITE_ORIGIN must be an absolute http(s) URL")
	}

	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}

	return nil
}

// HasCredentials reports whether both login values are present.
func (c *Config) HasCredentials() bool {
	return c.Site.User != "" && c.Site.Password != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
