package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "GILDEDLANE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GILDEDLANE_DB_DSN"
	EnvDBHost = "GILDEDLANE_DB_HOST"
	EnvDBUser = "GILDEDLANE_DB_USER"
	EnvDBName = "GILDEDLANE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Cart         CartConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"GILDEDLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"GILDEDLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GILDEDLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GILDEDLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GILDEDLANE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GILDEDLANE_DB_DSN"`
	Driver string `envconfig:"GILDEDLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GILDEDLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"GILDEDLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GILDEDLANE_DB_USER"`
	LegacyPassword string `envconfig:"GILDEDLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GILDEDLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GILDEDLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GILDEDLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GILDEDLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GILDEDLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GILDEDLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GILDEDLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GILDEDLANE_REDIS_ADDR"`
	Password     string        `envconfig:"GILDEDLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GILDEDLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GILDEDLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GILDEDLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GILDEDLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GILDEDLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GILDEDLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GILDEDLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GILDEDLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GILDEDLANE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTTLHours   int    `envconfig:"GILDEDLANE_JWT_REFRESH_TTL_HOURS" default:"720"`
}

// RefreshTokenTTL returns the refresh session lifetime as a duration.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTTLHours) * time.Hour
}

// PricingConfig carries the marketplace-wide pricing policy. Tax is expressed in
// basis points (1000 = 10%) so the policy survives env round-trips without
// floating point drift.
type PricingConfig struct {
	TaxRateBps             int64 `envconfig:"GILDEDLANE_PRICING_TAX_RATE_BPS" default:"300"`
	FreeShippingCents      int64 `envconfig:"GILDEDLANE_PRICING_FREE_SHIPPING_CENTS" default:"50000"`
	DeliveryFeeCents       int64 `envconfig:"GILDEDLANE_PRICING_DELIVERY_FEE_CENTS" default:"1500"`
	MaxQuantityPerCartLine int   `envconfig:"GILDEDLANE_PRICING_MAX_LINE_QTY" default:"10"`
}

type CartConfig struct {
	GuestCartTTL time.Duration `envconfig:"GILDEDLANE_CART_GUEST_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GILDEDLANE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GILDEDLANE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GILDEDLANE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GILDEDLANE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"GILDEDLANE_PUBSUB_ORDERS_TOPIC" default:"gl-order-events"`
	ReviewsTopic string `envconfig:"GILDEDLANE_PUBSUB_REVIEWS_TOPIC" default:"gl-review-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GILDEDLANE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GILDEDLANE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GILDEDLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GILDEDLANE_CRON_INTERVAL" default:"10m"`
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
