// Package config centralises configuration parsing for the challenge services.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/scoring"
)

// Config captures runtime configuration values shared by the api, consumer
// and dlqmanager binaries.
type Config struct {
	HTTPAddress    string `env:"HTTP_ADDRESS" envDefault:":8080"`
	MetricsAddress string `env:"METRICS_ADDRESS" envDefault:":9102"`
	// PostgresURL empty keeps the ledger in memory only.
	PostgresURL        string        `env:"POSTGRES_URL"`
	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envDefault:"kafka:9092" envSeparator:","`
	SchemaRegistryURL  string        `env:"SCHEMA_REGISTRY_URL" envDefault:"http://schema-registry:8081"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"25"`
	JWTSecret          string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"i5e.identity"`
	DLQPollInterval    time.Duration `env:"DLQ_POLL_INTERVAL" envDefault:"30s"` // Interval between DLQ polling iterations.
	DLQMaxRetries      int           `env:"DLQ_MAX_RETRIES" envDefault:"5"`     // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration `env:"DLQ_BASE_DELAY" envDefault:"1m"`     // Base delay used for exponential backoff.
	DLQBatchSize       int           `env:"DLQ_BATCH_SIZE" envDefault:"50"`

	// IngestEnabled starts the Kafka submission consumer inside the api process.
	IngestEnabled   bool     `env:"INGEST_ENABLED" envDefault:"false"`
	ConsumerTopics  []string `env:"CONSUMER_TOPICS" envDefault:"challenge.activity_submissions" envSeparator:","`
	ConsumerGroupID string   `env:"CONSUMER_GROUP_ID" envDefault:"fitchallenge-ingest"`

	ScoringModeName string `env:"SCORING_MODE" envDefault:"catalog"`
	ChallengeStart  string `env:"CHALLENGE_START" envDefault:"2000-01-01"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"5m"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath       string `env:"LOG_PATH"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"7"`
	LogCompress   bool   `env:"LOG_COMPRESS" envDefault:"false"`

	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	CORSOrigin         string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	scoringMode scoring.Mode
	epoch       time.Time
}

// Load reads environment variables into Config, applying sensible defaults for local dev.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	mode, err := scoring.ParseMode(cfg.ScoringModeName)
	if err != nil {
		return Config{}, err
	}
	cfg.scoringMode = mode

	epoch, err := period.ParseDay(cfg.ChallengeStart)
	if err != nil {
		return Config{}, fmt.Errorf("CHALLENGE_START: %w", err)
	}
	cfg.epoch = epoch

	cfg.KafkaBrokers = compact(cfg.KafkaBrokers)
	cfg.ConsumerTopics = compact(cfg.ConsumerTopics)
	if cfg.OutboxBatchSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	return cfg, nil
}

// ScoringMode is the validated SCORING_MODE.
func (c Config) ScoringMode() scoring.Mode {
	return c.scoringMode
}

// Epoch is the first day of the "all" reporting period.
func (c Config) Epoch() time.Time {
	return c.epoch
}

// Persistent reports whether a Postgres journal is configured.
func (c Config) Persistent() bool {
	return strings.TrimSpace(c.PostgresURL) != ""
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
