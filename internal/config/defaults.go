package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "surplus_db",
}

var defaultKafka = Kafka{
	Brokers: nil,
	Topic:   "surplus-notifications",
}

var defaultLifecycle = Lifecycle{
	EarlyTolerance:  15 * time.Minute,
	LateTolerance:   15 * time.Minute,
	GracePeriod:     2 * time.Minute,
	PromoteInterval: 5 * time.Second,
	DemoteInterval:  time.Minute,
	ExpireInterval:  time.Hour,
	AutoExpiry:      true,
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       5,
	Burst:      10,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

var defaultPprof = PprofConfig{
	Enabled: false,
	Addr:    "127.0.0.1:6060",
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultKafka returns the default notification producer settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultLifecycle returns the default lifecycle sweep settings.
func DefaultLifecycle() Lifecycle {
	return defaultLifecycle
}

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

// DefaultPprof returns the default debug server settings.
func DefaultPprof() PprofConfig {
	return defaultPprof
}
