package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	OpenAIAPIKey      string
	ChatModel         string
	FallbackChatModel string
	EmbedModel        string
	RetrievalTopK     int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	CustomerDataDir  string
	AppointmentsFile string

	AdvisorChannelID string
	AdvisorEmail     string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	SessionIdleTTL   time.Duration
	EvictionInterval time.Duration
	UpstreamTimeout  time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o-mini"),
		FallbackChatModel: getEnv("FALLBACK_CHAT_MODEL", ""),
		EmbedModel:        getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		RetrievalTopK:     getEnvAsInt("RETRIEVAL_TOP_K", 12),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CustomerDataDir:  getEnv("CUSTOMER_DATA_DIR", "./data"),
		AppointmentsFile: getEnv("APPOINTMENTS_FILE", "./data/appointments.jsonl"),

		AdvisorChannelID: getEnv("ADVISOR_CHANNEL_ID", ""),
		AdvisorEmail:     getEnv("ADVISOR_EMAIL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Service Assistant"),

		SessionIdleTTL:   getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		EvictionInterval: getEnvAsDuration("SESSION_EVICTION_INTERVAL", 5*time.Minute),
		UpstreamTimeout:  getEnvAsDuration("UPSTREAM_TIMEOUT", 20*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := strings.ToLower(getEnv(key, ""))
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
