package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Every value comes from the
// environment and has a default, so the server always starts; backends
// without configuration simply run in degraded mode.
type Config struct {
	Host string
	Port int

	RateLimitWindow time.Duration
	RateLimitMax    int

	PushoverToken   string
	PushoverUser    string
	PushoverTimeout time.Duration

	OpenAIModel      string
	OpenAITimeout    time.Duration
	OpenAIMaxRetries int

	DatabaseURL string
	RedisURL    string
	SessionTTL  time.Duration

	LogLevel          string
	LogForwardURL     string
	LogForwardTimeout time.Duration

	PersonaName string
	PersonaDir  string
}

// Load reads configuration from the environment.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", 5000)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 8)
	v.SetDefault("PUSHOVER_TIMEOUT_SECONDS", 5)
	v.SetDefault("OPENAI_TIMEOUT_SECONDS", 30)
	v.SetDefault("OPENAI_MAX_RETRIES", 2)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("SESSION_TTL_SECONDS", 3600)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORWARD_TIMEOUT", 2)
	v.SetDefault("PERSONA_NAME", "Borgar Flaen Stensrud")
	v.SetDefault("PERSONA_DIR", "me")

	return &Config{
		Host:              v.GetString("API_HOST"),
		Port:              v.GetInt("API_PORT"),
		RateLimitWindow:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		RateLimitMax:      v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		PushoverToken:     v.GetString("PUSHOVER_TOKEN"),
		PushoverUser:      v.GetString("PUSHOVER_USER"),
		PushoverTimeout:   time.Duration(v.GetInt("PUSHOVER_TIMEOUT_SECONDS")) * time.Second,
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		OpenAITimeout:     time.Duration(v.GetInt("OPENAI_TIMEOUT_SECONDS")) * time.Second,
		OpenAIMaxRetries:  v.GetInt("OPENAI_MAX_RETRIES"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisURL:          v.GetString("REDIS_URL"),
		SessionTTL:        time.Duration(v.GetInt("SESSION_TTL_SECONDS")) * time.Second,
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogForwardURL:     v.GetString("LOG_FORWARD_URL"),
		LogForwardTimeout: time.Duration(v.GetInt("LOG_FORWARD_TIMEOUT")) * time.Second,
		PersonaName:       v.GetString("PERSONA_NAME"),
		PersonaDir:        v.GetString("PERSONA_DIR"),
	}
}
