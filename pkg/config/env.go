package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the
// prefix only matters for untagged fields.
const EnvPrefix = "GARANTIE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "GARANTIE_APP_ENV"
	EnvPort     = "GARANTIE_APP_PORT"
	EnvLogLevel = "GARANTIE_LOG_LEVEL"

	EnvDBDSN     = "GARANTIE_DB_DSN"
	EnvDBHost    = "GARANTIE_DB_HOST"
	EnvDBUser    = "GARANTIE_DB_USER"
	EnvDBName    = "GARANTIE_DB_NAME"
	EnvUseSQLite = "GARANTIE_USE_SQLITE"

	EnvRedisURL = "GARANTIE_REDIS_URL"

	EnvRenderPollInterval = "GARANTIE_RENDER_POLL_INTERVAL"
	EnvRenderPollRetries  = "GARANTIE_RENDER_POLL_RETRIES"

	EnvClaimsBaseURL = "GARANTIE_CLAIMS_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
