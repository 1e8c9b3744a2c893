package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is built once in main and passed
// to constructors explicitly; no package keeps a global copy.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL  string
	StoreTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	// Vapi voice-AI vendor.
	VapiAPIKey        string
	VapiWebhookSecret string
	VapiWebhookURL    string

	// Retell voice-AI vendor.
	RetellAPIKey        string
	RetellMasterAgentID string
	WebhookBaseURL      string

	// Termii SMS/WhatsApp gateway.
	TermiiAPIKey   string
	TermiiSenderID string
	TermiiTimeout  time.Duration

	AdminJWTSecret string

	NotifyWorkerCount int
	NotifyQueueSize   int

	// ReminderSweepEnabled runs the periodic reminder sweep inside the API
	// process. Leave it off when the dedicated reminder-worker binary is
	// deployed; two sweepers would race on the same rows.
	ReminderSweepEnabled bool
	ReminderInterval     time.Duration
	ReminderLeadMin      time.Duration
	ReminderLeadMax      time.Duration

	WebhookRatePerSecond float64
	WebhookRateBurst     int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		VapiAPIKey:        getEnv("VAPI_API_KEY", ""),
		VapiWebhookSecret: getEnv("VAPI_WEBHOOK_SECRET", ""),
		VapiWebhookURL:    getEnv("VAPI_WEBHOOK_URL", ""),

		RetellAPIKey:        getEnv("RETELL_API_KEY", ""),
		RetellMasterAgentID: getEnv("RETELL_MASTER_AGENT_ID", ""),
		WebhookBaseURL:      getEnv("WEBHOOK_BASE_URL", ""),

		TermiiAPIKey:   getEnv("TERMII_API_KEY", ""),
		TermiiSenderID: getEnv("TERMII_SENDER_ID", "Curavoice"),
		TermiiTimeout:  getEnvAsDuration("TERMII_TIMEOUT", 10*time.Second),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		NotifyWorkerCount: getEnvAsInt("NOTIFY_WORKER_COUNT", 2),
		NotifyQueueSize:   getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),

		ReminderSweepEnabled: getEnvAsBool("REMINDER_SWEEP_ENABLED", false),
		ReminderInterval:     getEnvAsDuration("REMINDER_INTERVAL", 15*time.Minute),
		ReminderLeadMin:      getEnvAsDuration("REMINDER_LEAD_MIN", 24*time.Hour),
		ReminderLeadMax:      getEnvAsDuration("REMINDER_LEAD_MAX", 48*time.Hour),

		WebhookRatePerSecond: getEnvAsFloat("WEBHOOK_RATE_PER_SECOND", 10),
		WebhookRateBurst:     getEnvAsInt("WEBHOOK_RATE_BURST", 30),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsSlice(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
