package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment
type Config struct {
	GRPCAddr string
	APIToken string

	DBConnStr string

	AccountServiceURL  string
	CustomerServiceURL string
	ServiceAPIKey      string
	AccountAuthToken   string
	HTTPClientTimeout  time.Duration

	RabbitMQURL       string
	RabbitMQExchange  string
	NotificationTopic string

	RedisAddr    string
	FireDedupTTL time.Duration

	MongoURI      string
	MongoDatabase string

	Scheduler SchedulerConfig

	LogLevel   string
	LogConsole bool
}

// SchedulerConfig tunes the job store poller
type SchedulerConfig struct {
	InstanceID       string
	Workers          int
	PollInterval     time.Duration
	BatchSize        int
	MisfireThreshold time.Duration
	RecoveryAfter    time.Duration
}

// Load reads a .env file when one exists and then the process environment.
// The returned bool reports whether a .env file was loaded.
func Load() (*Config, bool, error) {
	loaded := godotenv.Load() == nil

	cfg, err := FromEnv()
	return cfg, loaded, err
}

// FromEnv builds a Config from the process environment, applying defaults
func FromEnv() (*Config, error) {
	r := &reader{}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "transferflow"
	}

	cfg := &Config{
		GRPCAddr:  getEnv("GRPC_ADDR", ":8080"),
		APIToken:  getEnv("API_TOKEN", "dev-token"),
		DBConnStr: dbConnStr(),

		AccountServiceURL:  getEnv("ACCOUNT_SERVICE_URL", "http://localhost:8081"),
		CustomerServiceURL: getEnv("CUSTOMER_SERVICE_URL", "http://localhost:8082"),
		ServiceAPIKey:      getEnv("SERVICE_API_KEY", ""),
		AccountAuthToken:   getEnv("ACCOUNT_AUTH_TOKEN", ""),
		HTTPClientTimeout:  r.duration("HTTP_CLIENT_TIMEOUT", 10*time.Second),

		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:  getEnv("RABBITMQ_EXCHANGE", "transfer_events"),
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "Transaction_Complete_Management"),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		FireDedupTTL: r.duration("FIRE_DEDUP_TTL", 24*time.Hour),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "transferflow"),

		Scheduler: SchedulerConfig{
			InstanceID:       getEnv("SCHEDULER_INSTANCE_ID", hostname),
			Workers:          r.int("SCHEDULER_WORKERS", 4),
			PollInterval:     r.duration("SCHEDULER_POLL_INTERVAL", time.Second),
			BatchSize:        r.int("SCHEDULER_BATCH_SIZE", 16),
			MisfireThreshold: r.duration("SCHEDULER_MISFIRE_THRESHOLD", time.Minute),
			RecoveryAfter:    r.duration("SCHEDULER_RECOVERY_AFTER", 10*time.Minute),
		},

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogConsole: r.bool("LOG_CONSOLE", false),
	}

	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// dbConnStr returns DB_CONN_STR or builds one from the individual DB_* variables
func dbConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "transferflow"),
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

// reader parses typed variables and keeps the first parse error
type reader struct {
	err error
}

func (r *reader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
}

func (r *reader) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, raw, err)
		return fallback
	}
	return v
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, raw, err)
		return fallback
	}
	return v
}

func (r *reader) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, raw, err)
		return fallback
	}
	return v
}
