package config

// Fields carry their full key; envconfig falls back to the bare tag after the prefixed lookup.
const EnvPrefix = "MEMORIAL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

const (
	EnvAppEnv        = "MEMORIAL_APP_ENV"
	EnvPort          = "MEMORIAL_APP_PORT"
	EnvBaseURL       = "MEMORIAL_BASE_URL"
	EnvDBDSN         = "MEMORIAL_DB_DSN"
	EnvDBHost        = "MEMORIAL_DB_HOST"
	EnvDBUser        = "MEMORIAL_DB_USER"
	EnvDBName        = "MEMORIAL_DB_NAME"
	EnvDBPassword    = "MEMORIAL_DB_PASSWORD"
	EnvUseSQLite     = "MEMORIAL_USE_SQLITE"
	EnvRedisURL      = "MEMORIAL_REDIS_URL"
	EnvJWTSecret     = "MEMORIAL_JWT_SECRET"
	EnvJWTIssuer     = "MEMORIAL_JWT_ISSUER"
	EnvJWTExpMins    = "MEMORIAL_JWT_EXPIRATION_MINUTES"
	EnvStorageDriver = "MEMORIAL_STORAGE_DRIVER"
	EnvGraceWindow   = "MEMORIAL_GRACE_WINDOW"
	EnvCORSOrigins   = "MEMORIAL_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
