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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Rendering    RenderingConfig
	Documents    DocumentsConfig
	Claims       ClaimsConfig
	Cron         CronConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GARANTIE_APP_ENV" required:"true"`
	Port         string `envconfig:"GARANTIE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GARANTIE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GARANTIE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GARANTIE_DB_DSN"`
	Driver string `envconfig:"GARANTIE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GARANTIE_DB_HOST"`
	LegacyPort     int    `envconfig:"GARANTIE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GARANTIE_DB_USER"`
	LegacyPassword string `envconfig:"GARANTIE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GARANTIE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GARANTIE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GARANTIE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GARANTIE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GARANTIE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GARANTIE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"GARANTIE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GARANTIE_REDIS_URL"`
	Address      string        `envconfig:"GARANTIE_REDIS_ADDR"`
	Password     string        `envconfig:"GARANTIE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GARANTIE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GARANTIE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GARANTIE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GARANTIE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GARANTIE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GARANTIE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GARANTIE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GARANTIE_AUTO_MIGRATE" default:"false"`
}

// RenderingConfig tunes the rendering engine bootstrap.
type RenderingConfig struct {
	SettleDelay  time.Duration `envconfig:"GARANTIE_RENDER_SETTLE_DELAY" default:"100ms"`
	PollInterval time.Duration `envconfig:"GARANTIE_RENDER_POLL_INTERVAL" default:"200ms"`
	PollRetries  int           `envconfig:"GARANTIE_RENDER_POLL_RETRIES" default:"5"`
}

type DocumentsConfig struct {
	MaxPlausibleAmount float64       `envconfig:"GARANTIE_DOCS_MAX_PLAUSIBLE_AMOUNT" default:"1000000"`
	Currency           string        `envconfig:"GARANTIE_DOCS_CURRENCY" default:"CAD"`
	TaxLabel           string        `envconfig:"GARANTIE_DOCS_TAX_LABEL" default:"Taxes (TPS/TVQ)"`
	LockTTL            time.Duration `envconfig:"GARANTIE_DOCS_LOCK_TTL" default:"5m"`
}

type ClaimsConfig struct {
	BaseURL string `envconfig:"GARANTIE_CLAIMS_BASE_URL"`
	QRSize  int    `envconfig:"GARANTIE_CLAIMS_QR_SIZE" default:"256"`
}

// Enabled reports whether claim links should be produced for contracts.
func (c ClaimsConfig) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

type CronConfig struct {
	Interval             time.Duration `envconfig:"GARANTIE_CRON_INTERVAL" default:"10m"`
	StaleGenerationAfter time.Duration `envconfig:"GARANTIE_CRON_STALE_GENERATION_AFTER" default:"30m"`
	ErrorRetentionDays   int           `envconfig:"GARANTIE_CRON_ERROR_RETENTION_DAYS" default:"90"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GARANTIE_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"GARANTIE_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts    int           `envconfig:"GARANTIE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishRetries uint64        `envconfig:"GARANTIE_OUTBOX_PUBLISH_RETRIES" default:"2"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = "sqlite"
		db.DSN = "file:garantie.db?cache=shared"
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
