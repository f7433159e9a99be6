package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN      string
	MongoURI         string
	RedisAddr        string
	RabbitURL        string
	HTTPAddr         string
	OTLPEndpoint     string
	IdempotencyTTL   time.Duration
	SweepInterval    time.Duration
	BidRetryAttempts int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	idempTTL, _ := time.ParseDuration(os.Getenv("IDEMPOTENCY_TTL"))
	if idempTTL == 0 {
		idempTTL = time.Hour
	}

	sweep, _ := time.ParseDuration(os.Getenv("SWEEP_INTERVAL"))
	if sweep == 0 {
		sweep = time.Minute
	}

	retries, _ := strconv.Atoi(os.Getenv("BID_RETRY_ATTEMPTS"))
	if retries <= 0 {
		retries = 3
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return &Config{
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		MongoURI:         os.Getenv("MONGO_URI"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		HTTPAddr:         addr,
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		IdempotencyTTL:   idempTTL,
		SweepInterval:    sweep,
		BidRetryAttempts: retries,
	}, nil
}
