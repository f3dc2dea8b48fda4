package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores service settings for both the API and the sweeper worker.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Lifecycle Lifecycle
	RateLimit RateLimit
	Pprof     PprofConfig
}

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a Postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Kafka stores notification producer settings. Empty brokers disable publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Lifecycle stores the tuning knobs of the offer lifecycle sweeps.
type Lifecycle struct {
	EarlyTolerance  time.Duration
	LateTolerance   time.Duration
	GracePeriod     time.Duration
	PromoteInterval time.Duration
	DemoteInterval  time.Duration
	ExpireInterval  time.Duration
	AutoExpiry      bool
}

// PprofConfig stores the debug server settings. Credentials are only
// required for non-loopback callers.
type PprofConfig struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// RateLimit stores HTTP rate limiting settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      DefaultPort(),
		DB:        DefaultDB(),
		Kafka:     DefaultKafka(),
		Lifecycle: DefaultLifecycle(),
		RateLimit: DefaultRateLimit(),
		Pprof:     DefaultPprof(),
	}

	cfg.Port = envInt("PORT", cfg.Port)

	cfg.DB.Host = envStr("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envStr("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envStr("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Pass = envStr("POSTGRES_PASSWORD", cfg.DB.Pass)
	cfg.DB.Name = envStr("POSTGRES_DB", cfg.DB.Name)

	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = splitBrokers(v)
	}
	cfg.Kafka.Topic = envStr("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Lifecycle.EarlyTolerance = envDuration("LIFECYCLE_EARLY_TOLERANCE", cfg.Lifecycle.EarlyTolerance)
	cfg.Lifecycle.LateTolerance = envDuration("LIFECYCLE_LATE_TOLERANCE", cfg.Lifecycle.LateTolerance)
	cfg.Lifecycle.GracePeriod = envDuration("LIFECYCLE_GRACE_PERIOD", cfg.Lifecycle.GracePeriod)
	cfg.Lifecycle.PromoteInterval = envDuration("LIFECYCLE_PROMOTE_INTERVAL", cfg.Lifecycle.PromoteInterval)
	cfg.Lifecycle.DemoteInterval = envDuration("LIFECYCLE_DEMOTE_INTERVAL", cfg.Lifecycle.DemoteInterval)
	cfg.Lifecycle.ExpireInterval = envDuration("LIFECYCLE_EXPIRE_INTERVAL", cfg.Lifecycle.ExpireInterval)
	cfg.Lifecycle.AutoExpiry = envBool("LIFECYCLE_AUTO_EXPIRY", cfg.Lifecycle.AutoExpiry)

	cfg.RateLimit.Enabled = envBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Rate = envFloat("RATE_LIMIT_RATE", cfg.RateLimit.Rate)
	cfg.RateLimit.Burst = envInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.TTL = envDuration("RATE_LIMIT_TTL", cfg.RateLimit.TTL)
	cfg.RateLimit.MaxBuckets = envInt("RATE_LIMIT_MAX_BUCKETS", cfg.RateLimit.MaxBuckets)

	cfg.Pprof.Enabled = envBool("PPROF_ENABLED", cfg.Pprof.Enabled)
	cfg.Pprof.Addr = envStr("PPROF_ADDR", cfg.Pprof.Addr)
	cfg.Pprof.User = envStr("PPROF_USER", cfg.Pprof.User)
	cfg.Pprof.Pass = envStr("PPROF_PASS", cfg.Pprof.Pass)

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Lifecycle.EarlyTolerance < 0 || c.Lifecycle.LateTolerance < 0 {
		return fmt.Errorf("negative tolerance: early=%s late=%s",
			c.Lifecycle.EarlyTolerance, c.Lifecycle.LateTolerance)
	}
	if c.Lifecycle.GracePeriod < 0 {
		return fmt.Errorf("negative grace period: %s", c.Lifecycle.GracePeriod)
	}
	if c.Lifecycle.PromoteInterval <= 0 || c.Lifecycle.DemoteInterval <= 0 || c.Lifecycle.ExpireInterval <= 0 {
		return fmt.Errorf("sweep intervals must be positive")
	}
	return nil
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("warning: %s=%q is not an int, using %d", key, v, def)
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("warning: %s=%q is not a float, using %v", key, v, def)
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("warning: %s=%q is not a bool, using %v", key, v, def)
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("warning: %s=%q is not a duration, using %s", key, v, def)
	}
	return def
}
