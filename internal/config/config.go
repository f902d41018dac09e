package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centralizes the configuration loaded from the environment.
type Config struct {
	Port          int
	APIBaseURL    string
	FeedURL       string
	RedisURL      string
	AlertsStore   string
	AlertsTTL     time.Duration
	AllowOrigins  []string
	CookieSecure  bool
	SessionTTL    time.Duration
	APITimeout    time.Duration
	LogLevel      string
	Feed          FeedConfig
	Monitor       MonitorConfig
	RateLimitAuth RateLimitConfig
	RateLimitUser RateLimitConfig
}

// FeedConfig controls the reconnect policy of the live alert channel.
type FeedConfig struct {
	Backoff     time.Duration
	MaxAttempts int
}

// MonitorConfig controls the upstream watch loop. A zero interval disables it.
type MonitorConfig struct {
	Interval         time.Duration
	FailureThreshold int
	SlackWebhookURL  string
}

// RateLimitConfig holds simple throttling limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads environment variables and applies safe defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		return nil, errors.New("invalid PORT")
	}
	cfg.Port = port

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(getEnv("API_BASE_URL", "")), "/")
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, errors.New("invalid API_BASE_URL")
	}

	cfg.FeedURL = strings.TrimSpace(getEnv("FEED_URL", ""))
	if cfg.FeedURL == "" {
		cfg.FeedURL = DeriveFeedURL(cfg.APIBaseURL)
	}

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))
	cfg.AlertsStore = strings.ToLower(strings.TrimSpace(getEnv("ALERTS_STORE", "memory")))
	switch cfg.AlertsStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("ALERTS_STORE=redis requires REDIS_URL")
		}
	default:
		return nil, errors.New("ALERTS_STORE must be memory or redis")
	}

	if cfg.AlertsTTL, err = parseDurationEnv("ALERTS_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.APITimeout, err = parseDurationEnv("API_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.CookieSecure = getEnvAsBool("COOKIE_SECURE", false)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))

	backoff, err := parseDurationEnv("FEED_BACKOFF", 2*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Feed = FeedConfig{
		Backoff:     backoff,
		MaxAttempts: getEnvAsInt("FEED_MAX_ATTEMPTS", 5),
	}
	if cfg.Feed.MaxAttempts < 0 {
		return nil, errors.New("FEED_MAX_ATTEMPTS must be >= 0")
	}

	monitorInterval, err := parseDurationEnv("MONITOR_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Monitor = MonitorConfig{
		Interval:         monitorInterval,
		FailureThreshold: getEnvAsInt("MONITOR_FAILURE_THRESHOLD", 3),
		SlackWebhookURL:  strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", "")),
	}

	cfg.RateLimitAuth = RateLimitConfig{
		RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_LOGIN_RPS", 1),
		Burst:             getEnvAsInt("RATE_LIMIT_LOGIN_BURST", 5),
	}
	cfg.RateLimitUser = RateLimitConfig{
		RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_USER_RPS", 20),
		Burst:             getEnvAsInt("RATE_LIMIT_USER_BURST", 40),
	}

	return cfg, nil
}

// DeriveFeedURL turns the API origin into the websocket address of its socket.io
// server. socket.io listens at the origin root, so any API path is dropped.
func DeriveFeedURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/socket.io/"
	u.RawQuery = "EIO=4&transport=websocket"
	return u.String()
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvAsFloat(key string, def float64) float64 {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvAsBool(key string, def bool) bool {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return dur, nil
}
