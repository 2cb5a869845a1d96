package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN      string
	MongoURI         string
	RedisAddr        string
	RabbitURL        string
	SeatAuthorityURL string
	HTTPAddr         string
	OTLPEndpoint     string

	// LockTTL bounds how long a seat lock survives without being released.
	// Expiry is the only reclamation path for locks; there is no renewal.
	LockTTL time.Duration

	// PendingTimeout is how long a booking may sit in PENDING before the
	// reclaimer cancels it. SweepInterval is how often the reclaimer looks.
	// The two are independent knobs on purpose.
	PendingTimeout time.Duration
	SweepInterval  time.Duration

	// AuthorityTimeout bounds every outbound seat-authority call.
	AuthorityTimeout time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		MongoURI:         os.Getenv("MONGO_URI"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		SeatAuthorityURL: os.Getenv("SEAT_AUTHORITY_URL"),
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LockTTL:          envDuration("SEAT_LOCK_TTL", 5*time.Minute),
		PendingTimeout:   envDuration("PENDING_TIMEOUT", 150*time.Second),
		SweepInterval:    envDuration("SWEEP_INTERVAL", time.Minute),
		AuthorityTimeout: envDuration("AUTHORITY_TIMEOUT", 5*time.Second),
	}, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
