package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Stripe   StripeConfig
	Auth     AuthConfig
	CheckIn  CheckInConfig
	Checkout CheckoutConfig
	Outbox   OutboxConfig
	Notify   NotifyConfig
	LogLevel string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          string
	Username      string
	Password      string
	Database      string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   time.Duration
	MigrationsDir string
	AutoMigrate   bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderEvents   string
	Notifications string
}

// All returns every topic the service produces to.
func (t TopicConfig) All() []string {
	return []string{t.OrderEvents, t.Notifications}
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type AuthConfig struct {
	OIDCIssuer       string
	OIDCClientID     string
	OrderTokenSecret string
	OrderTokenIssuer string
	OrderTokenAud    string
}

type CheckInConfig struct {
	// GraceWindow is how long before the event date scans are accepted.
	GraceWindow time.Duration
	ScanRate    float64
	ScanBurst   int
}

type CheckoutConfig struct {
	LockTTL        time.Duration
	PersistRetries int
	PersistBackoff time.Duration
}

type OutboxConfig struct {
	Enabled      bool
	PollInterval time.Duration
	MaxRetries   int
}

type NotifyConfig struct {
	MailingListID  string
	AttendeeTag    string
	PartnerTag     string
	ReceiptEnabled bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			Username:      getEnv("DB_USERNAME", "boxoffice"),
			Password:      getEnv("DB_PASSWORD", "boxoffice"),
			Database:      getEnv("DB_NAME", "boxoffice"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:  getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:  getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:   time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			MigrationsDir: getEnv("DB_MIGRATIONS_DIR", "./internal/database/migrations/sql"),
			AutoMigrate:   getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderEvents:   getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
				Notifications: getEnv("KAFKA_TOPIC_NOTIFICATIONS", "notifications"),
			},
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:  getEnv("STRIPE_CURRENCY", "usd"),
		},
		Auth: AuthConfig{
			OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
			OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
			OrderTokenSecret: getEnv("ORDER_TOKEN_SECRET", ""),
			OrderTokenIssuer: getEnv("ORDER_TOKEN_ISSUER", "boxoffice"),
			OrderTokenAud:    getEnv("ORDER_TOKEN_AUDIENCE", "tickets"),
		},
		CheckIn: CheckInConfig{
			GraceWindow: getEnvDuration("CHECKIN_GRACE_WINDOW", 240*time.Hour),
			ScanRate:    getEnvFloat("CHECKIN_SCAN_RATE", 20),
			ScanBurst:   getEnvInt("CHECKIN_SCAN_BURST", 40),
		},
		Checkout: CheckoutConfig{
			LockTTL:        getEnvDuration("CHECKOUT_LOCK_TTL", 2*time.Minute),
			PersistRetries: getEnvInt("CHECKOUT_PERSIST_RETRIES", 3),
			PersistBackoff: getEnvDuration("CHECKOUT_PERSIST_BACKOFF", 200*time.Millisecond),
		},
		Outbox: OutboxConfig{
			Enabled:      getEnvBool("OUTBOX_ENABLED", true),
			PollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
			MaxRetries:   getEnvInt("OUTBOX_MAX_RETRIES", 10),
		},
		Notify: NotifyConfig{
			MailingListID:  getEnv("MAILING_LIST_ID", ""),
			AttendeeTag:    getEnv("MAILING_LIST_ATTENDEE_TAG", "Attendee"),
			PartnerTag:     getEnv("MAILING_LIST_PARTNER_TAG", "Partner Marketing"),
			ReceiptEnabled: getEnvBool("RECEIPTS_ENABLED", true),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
