package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds application configuration
type Config struct {
	Port      string
	LogLevel  string
	JWTSecret string

	StoreDriver   string
	DBConn        string
	MongoURI      string
	MongoDatabase string

	InstitutionName string
	CountryCode     string
	CurrencySymbol  string
	Locale          string

	ReminderSendDelay         time.Duration
	ReminderSuppressionWindow time.Duration
	ReminderCron              string

	WhatsAppAPIURL        string
	WhatsAppPhoneNumberID string
	WhatsAppToken         string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	AdminEmail   string
}

// NewConfig loads configuration from environment variables. A .env file in
// the working directory is applied first when present.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		JWTSecret: getEnv("JWT_SECRET", "secret"),

		StoreDriver:   getEnv("STORE_DRIVER", StorePostgres),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=fees sslmode=disable"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "fees"),

		InstitutionName: getEnv("INSTITUTION_NAME", ""),
		CountryCode:     getEnv("COUNTRY_CODE", "91"),
		CurrencySymbol:  getEnv("CURRENCY_SYMBOL", "₹"),
		Locale:          getEnv("LOCALE", "en-IN"),

		ReminderSendDelay:         getEnvDuration("REMINDER_SEND_DELAY", 1500*time.Millisecond),
		ReminderSuppressionWindow: getEnvDuration("REMINDER_SUPPRESSION_WINDOW", 24*time.Hour),
		ReminderCron:              getEnv("REMINDER_CRON", "0 9 * * *"),

		WhatsAppAPIURL:        getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v19.0"),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppToken:         getEnv("WHATSAPP_TOKEN", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", ""),
		AdminEmail:   getEnv("ADMIN_EMAIL", ""),
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required")
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required")
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.CountryCode) == 0 || !isDigits(cfg.CountryCode) {
		return nil, fmt.Errorf("COUNTRY_CODE must be numeric, got %q", cfg.CountryCode)
	}
	if cfg.ReminderSendDelay < 0 {
		return nil, fmt.Errorf("REMINDER_SEND_DELAY must not be negative")
	}

	return cfg, nil
}

// WhatsAppEnabled reports whether Cloud API credentials are configured.
func (c *Config) WhatsAppEnabled() bool {
	return c.WhatsAppToken != "" && c.WhatsAppPhoneNumberID != ""
}

// SMTPEnabled reports whether batch summaries can be emailed.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != "" && c.AdminEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("1500ms", "24h") or plain milliseconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
