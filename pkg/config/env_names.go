package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// names in their tags so the prefix is effectively documentation.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv     = "REFERMATE_APP_ENV"
	EnvPort       = "REFERMATE_APP_PORT"
	EnvDBDSN      = "REFERMATE_DB_DSN"
	EnvDBHost     = "REFERMATE_DB_HOST"
	EnvDBUser     = "REFERMATE_DB_USER"
	EnvDBName     = "REFERMATE_DB_NAME"
	EnvRedisURL   = "REFERMATE_REDIS_URL"
	EnvJWTSecret  = "REFERMATE_JWT_SECRET"
	EnvJWTIssuer  = "REFERMATE_JWT_ISSUER"
	EnvJWTExpMins = "REFERMATE_JWT_EXPIRATION_MINUTES"
	EnvStripeKey  = "REFERMATE_STRIPE_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
