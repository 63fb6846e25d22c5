package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment       string
	HTTPPort          string
	ServiceName       string
	DatabaseURL       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SessionSecret     string
	AppID             string
	AppSecret         string
	AccessToken       string
	GraphURL          string
	GraphVersion      string
	BaseURL           string
	AppRedirect       string
	AppUserRedirect   string
	VerifyToken       string
	Issuer            string
	OpenIDKeysURL     string
	LinkTTL           time.Duration
	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	appID := strings.TrimSpace(os.Getenv("APP_ID"))
	if appID == "" {
		return Config{}, fmt.Errorf("APP_ID is required")
	}
	appSecret := strings.TrimSpace(os.Getenv("APP_SECRET"))
	if appSecret == "" {
		return Config{}, fmt.Errorf("APP_SECRET is required")
	}

	cfg := Config{
		Environment:       getEnv("APP_ENV", "development"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		ServiceName:       getEnv("SERVICE_NAME", "workplace-console"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getInt("REDIS_DB", 0),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		AppID:             appID,
		AppSecret:         appSecret,
		AccessToken:       os.Getenv("ACCESS_TOKEN"),
		GraphURL:          getEnv("GRAPH_URL", "https://graph.workplace.com"),
		GraphVersion:      getEnv("GRAPH_VERSION", "v3.2"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080/"),
		AppRedirect:       os.Getenv("APP_REDIRECT"),
		AppUserRedirect:   os.Getenv("APP_USER_REDIRECT"),
		VerifyToken:       os.Getenv("VERIFY_TOKEN"),
		Issuer:            getEnv("ISSUER", "https://workplace.com"),
		OpenIDKeysURL:     getEnv("OPENID_KEYS_URL", "https://www.workplace.com/.well-known/openid/"),
		LinkTTL:           getDuration("LINK_TTL", 15*time.Minute),
		RateLimitRPM:      getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
