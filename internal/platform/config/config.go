package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	strutil "eduhub/pkg/platform/strings"
)

// Issuer environments.
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

// Ledger backends.
const (
	LedgerMemory   = "memory"
	LedgerFile     = "file"
	LedgerS3       = "s3"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
)

const (
	sandboxIssuerURL     = "https://api.vc.staging.opencampus.xyz"
	productionIssuerURL  = "https://api.vc.opencampus.xyz"
	sandboxProfileURL    = "https://id.sandbox.opencampus.xyz/profile/"
	productionProfileURL = "https://id.opencampus.xyz/profile/"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string        `env:"EDUHUB_ADDR"     envDefault:":8080"`
	LogLevel       string        `env:"LOG_LEVEL"       envDefault:"info"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES"  envDefault:"65536"`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	AdminToken     string        `env:"ADMIN_TOKEN"`
	AdminTokenHash string        `env:"ADMIN_TOKEN_HASH"`
	StatsInterval  time.Duration `env:"STATS_INTERVAL"  envDefault:"30s"`

	Issuer    Issuer
	Templates Templates
	Ledger    Ledger
	Kafka     Kafka
}

// Issuer configures the outbound Open Campus issuer API.
type Issuer struct {
	Environment      string        `env:"OCA_ENVIRONMENT"         envDefault:"sandbox"`
	AchievementKey   string        `env:"OCA_API_KEY"`
	BadgeKey         string        `env:"OCB_API_KEY"`
	BaseURL          string        `env:"ISSUER_BASE_URL"`
	ProfileBaseURL   string        `env:"PROFILE_BASE_URL"`
	Timeout          time.Duration `env:"ISSUER_TIMEOUT"          envDefault:"15s"`
	CollectionSymbol string        `env:"OCB_COLLECTION_SYMBOL"   envDefault:"ocbadge"`
	BreakerFailures  int           `env:"ISSUER_BREAKER_FAILURES" envDefault:"5"`
	BreakerCooldown  time.Duration `env:"ISSUER_BREAKER_COOLDOWN" envDefault:"30s"`
}

// Templates holds the image URLs placed into credential payloads.
type Templates struct {
	CredentialImageURL string `env:"CREDENTIAL_IMAGE_URL" envDefault:"https://eduhub.dev/eduhub.png"`
	BadgeIconURL       string `env:"BADGE_ICON_URL"       envDefault:"https://app.eduhub.dev/eduplus.png"`
}

// Ledger selects and configures the claim ledger backend.
type Ledger struct {
	Backend     string `env:"LEDGER_BACKEND" envDefault:"memory"`
	Key         string `env:"LEDGER_KEY"     envDefault:"eduhub_claimed_credentials"`
	Dir         string `env:"LEDGER_DIR"     envDefault:"./data"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	S3          S3
}

// S3 configures the object-store ledger. Endpoint makes R2 and MinIO work.
type S3 struct {
	Bucket          string `env:"LEDGER_S3_BUCKET"`
	Region          string `env:"LEDGER_S3_REGION"            envDefault:"auto"`
	Endpoint        string `env:"LEDGER_S3_ENDPOINT"`
	AccessKeyID     string `env:"LEDGER_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"LEDGER_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"LEDGER_S3_PATH_STYLE"`
}

// Kafka configures the optional claim event sink. No brokers means events are only logged.
type Kafka struct {
	Brokers     []string `env:"KAFKA_BROKERS"      envSeparator:","`
	ClaimsTopic string   `env:"KAFKA_CLAIMS_TOPIC" envDefault:"eduhub.claims"`
	ClientID    string   `env:"KAFKA_CLIENT_ID"    envDefault:"eduhub"`
}

// Enabled reports whether a broker list was configured.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// Load reads an optional .env file and then parses the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Server, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Server{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv()
}

// FromEnv parses and validates configuration from the process environment.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Issuer.Environment = strings.ToLower(strings.TrimSpace(cfg.Issuer.Environment))
	cfg.Ledger.Backend = strings.ToLower(strings.TrimSpace(cfg.Ledger.Backend))
	cfg.TrustedProxies = strutil.DedupeAndTrim(cfg.TrustedProxies)
	cfg.Kafka.Brokers = strutil.DedupeAndTrim(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
// A missing API key is not an error here: the gateway reports it per request.
func (s Server) Validate() error {
	switch s.Issuer.Environment {
	case EnvironmentSandbox, EnvironmentProduction:
	default:
		return fmt.Errorf("OCA_ENVIRONMENT must be %q or %q, got %q", EnvironmentSandbox, EnvironmentProduction, s.Issuer.Environment)
	}
	if s.Issuer.Timeout <= 0 {
		return errors.New("ISSUER_TIMEOUT must be positive")
	}
	if s.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be positive")
	}
	if s.AdminToken != "" && s.AdminTokenHash != "" {
		return errors.New("set ADMIN_TOKEN or ADMIN_TOKEN_HASH, not both")
	}

	switch s.Ledger.Backend {
	case LedgerMemory, LedgerFile:
	case LedgerPostgres:
		if s.Ledger.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres ledger")
		}
	case LedgerRedis:
		if s.Ledger.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis ledger")
		}
	case LedgerS3:
		if s.Ledger.S3.Bucket == "" {
			return errors.New("LEDGER_S3_BUCKET is required for the s3 ledger")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", s.Ledger.Backend)
	}
	return nil
}

// IssuerBaseURL returns the override, or the URL for the configured environment.
func (i Issuer) IssuerBaseURL() string {
	if i.BaseURL != "" {
		return strings.TrimRight(i.BaseURL, "/")
	}
	if i.Environment == EnvironmentProduction {
		return productionIssuerURL
	}
	return sandboxIssuerURL
}

// ProfileURLBase returns the prefix joined with an OCID to form a profile link.
func (i Issuer) ProfileURLBase() string {
	if i.ProfileBaseURL != "" {
		return i.ProfileBaseURL
	}
	if i.Environment == EnvironmentProduction {
		return productionProfileURL
	}
	return sandboxProfileURL
}

// APIKey returns the key for the issuance mode. Each mode falls back to the
// other mode's key when only one is configured. Empty means unconfigured.
func (i Issuer) APIKey(badge bool) string {
	primary, fallback := i.AchievementKey, i.BadgeKey
	if badge {
		primary, fallback = i.BadgeKey, i.AchievementKey
	}
	if primary != "" {
		return primary
	}
	return fallback
}
