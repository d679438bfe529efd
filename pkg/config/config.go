package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Payout       PayoutConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"REFERMATE_APP_ENV" required:"true"`
	Port         string `envconfig:"REFERMATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REFERMATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REFERMATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"REFERMATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"REFERMATE_DB_DSN"`
	Driver string `envconfig:"REFERMATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REFERMATE_DB_HOST"`
	LegacyPort     int    `envconfig:"REFERMATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REFERMATE_DB_USER"`
	LegacyPassword string `envconfig:"REFERMATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"REFERMATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"REFERMATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REFERMATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REFERMATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REFERMATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REFERMATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REFERMATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REFERMATE_REDIS_ADDR"`
	Password     string        `envconfig:"REFERMATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"REFERMATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REFERMATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REFERMATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REFERMATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REFERMATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REFERMATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"REFERMATE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"REFERMATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"REFERMATE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"REFERMATE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"REFERMATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"REFERMATE_AUTO_MIGRATE" default:"false"`
}

// PayoutConfig drives fee computation and request eligibility. The engine
// receives this object at construction instead of reading process env state,
// so tests can swap rates freely.
type PayoutConfig struct {
	PlatformFeeBps   int64  `envconfig:"REFERMATE_PAYOUT_PLATFORM_FEE_BPS" default:"100"`
	ProviderFeeCents int64  `envconfig:"REFERMATE_PAYOUT_PROVIDER_FEE_CENTS" default:"25"`
	MinimumCents     int64  `envconfig:"REFERMATE_PAYOUT_MINIMUM_CENTS" default:"1000"`
	Currency         string `envconfig:"REFERMATE_PAYOUT_CURRENCY" default:"usd"`
	DefaultCountry   string `envconfig:"REFERMATE_PAYOUT_DEFAULT_COUNTRY" default:"US"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"REFERMATE_STRIPE_API_KEY"`
	Env        string `envconfig:"REFERMATE_STRIPE_ENV" default:"test"`
	RefreshURL string `envconfig:"REFERMATE_STRIPE_ONBOARDING_REFRESH_URL"`
	ReturnURL  string `envconfig:"REFERMATE_STRIPE_ONBOARDING_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Configured reports whether live money-movement credentials are present.
// When false the process runs against the simulated provider.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"REFERMATE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PayoutTopic string `envconfig:"REFERMATE_PUBSUB_PAYOUT_TOPIC" default:"rm-payout-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"REFERMATE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"REFERMATE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"REFERMATE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
