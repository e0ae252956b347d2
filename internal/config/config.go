package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIBaseURL      string        `yaml:"api_base_url"`
	RedisAddr       string        `yaml:"redis_addr"`
	HTTPPort        string        `yaml:"http_port"`
	JWTSecret       string        `yaml:"jwt_secret"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ChatTimeout     time.Duration `yaml:"chat_timeout"`
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl"`
	NotificationTTL time.Duration `yaml:"notification_ttl"`
	VisitorIdleTTL  time.Duration `yaml:"visitor_idle_ttl"`
	RateLimitMax    int           `yaml:"rate_limit_max"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
}

func NewConfig() *Config {
	return &Config{
		APIBaseURL:      getEnv("STOREFRONT_API_URL", "http://localhost:8081/api"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "dev-secret"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 5*time.Second),
		ChatTimeout:     getDuration("CHAT_TIMEOUT", 2*time.Minute),
		CatalogCacheTTL: getDuration("CATALOG_CACHE_TTL", 30*time.Second),
		NotificationTTL: getDuration("NOTIFICATION_TTL", 5*time.Second),
		VisitorIdleTTL:  getDuration("VISITOR_IDLE_TTL", 30*time.Minute),
		RateLimitMax:    getInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// Load builds the env config and overlays the YAML file at path, if any.
// Keys missing from the file keep their env/default value.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
