package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Webhook      WebhookConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEARNLOOM_APP_ENV" required:"true"`
	Port         string `envconfig:"LEARNLOOM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LEARNLOOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEARNLOOM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LEARNLOOM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LEARNLOOM_DB_DSN"`
	Driver string `envconfig:"LEARNLOOM_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LEARNLOOM_DB_HOST"`
	Port     int    `envconfig:"LEARNLOOM_DB_PORT" default:"5432"`
	User     string `envconfig:"LEARNLOOM_DB_USER"`
	Password string `envconfig:"LEARNLOOM_DB_PASSWORD"`
	Name     string `envconfig:"LEARNLOOM_DB_NAME"`
	SSLMode  string `envconfig:"LEARNLOOM_DB_SSLMODE" default:"disable"`

	MaxOpenConns     int           `envconfig:"LEARNLOOM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns     int           `envconfig:"LEARNLOOM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime  time.Duration `envconfig:"LEARNLOOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime  time.Duration `envconfig:"LEARNLOOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	StatementTimeout time.Duration `envconfig:"LEARNLOOM_DB_STATEMENT_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LEARNLOOM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LEARNLOOM_REDIS_ADDR"`
	Password     string        `envconfig:"LEARNLOOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEARNLOOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEARNLOOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEARNLOOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEARNLOOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEARNLOOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEARNLOOM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LEARNLOOM_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LEARNLOOM_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LEARNLOOM_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"LEARNLOOM_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"LEARNLOOM_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"LEARNLOOM_STRIPE_ENV" default:"test"`

	OnboardingRefreshURL string `envconfig:"LEARNLOOM_STRIPE_ONBOARDING_REFRESH_URL"`
	OnboardingReturnURL  string `envconfig:"LEARNLOOM_STRIPE_ONBOARDING_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	SignatureTolerance time.Duration `envconfig:"LEARNLOOM_WEBHOOK_SIGNATURE_TOLERANCE" default:"5m"`
	IdempotencyTTL     time.Duration `envconfig:"LEARNLOOM_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"LEARNLOOM_CRON_INTERVAL" default:"1h"`
	LockTTL     time.Duration `envconfig:"LEARNLOOM_CRON_LOCK_TTL" default:"55m"`
	OrphanGrace time.Duration `envconfig:"LEARNLOOM_CRON_ORPHAN_GRACE" default:"15m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LEARNLOOM_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Host == "" || db.User == "" || db.Name == "" {
		return fmt.Errorf("db config requires either LEARNLOOM_DB_DSN or host/user/name")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}
	q := u.Query()
	q.Set("sslmode", db.SSLMode)
	u.RawQuery = q.Encode()

	db.DSN = u.String()
	return nil
}
