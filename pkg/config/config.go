package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "VIETSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VIETSHOP_DB_DSN"
	EnvDBHost = "VIETSHOP_DB_HOST"
	EnvDBUser = "VIETSHOP_DB_USER"
	EnvDBName = "VIETSHOP_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
	Sweeper      SweeperConfig
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
	if _, err := cfg.Checkout.CommissionRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VIETSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"VIETSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VIETSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VIETSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VIETSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VIETSHOP_DB_DSN"`
	Driver string `envconfig:"VIETSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VIETSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"VIETSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VIETSHOP_DB_USER"`
	LegacyPassword string `envconfig:"VIETSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"VIETSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"VIETSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VIETSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VIETSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VIETSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VIETSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VIETSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VIETSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"VIETSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"VIETSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VIETSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VIETSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VIETSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VIETSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VIETSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"VIETSHOP_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"VIETSHOP_JWT_ISSUER" required:"true"`
}

// CheckoutConfig carries the platform-level commission default applied when a
// shop has no override.
type CheckoutConfig struct {
	PlatformCommissionRate string `envconfig:"VIETSHOP_PLATFORM_COMMISSION_RATE" default:"0.05"`
}

// CommissionRate parses the configured platform commission rate.
func (c CheckoutConfig) CommissionRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.PlatformCommissionRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing platform commission rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("platform commission rate %s out of range [0,1]", rate)
	}
	return rate, nil
}

type CartConfig struct {
	TTL           time.Duration `envconfig:"VIETSHOP_CART_TTL" default:"720h"`
	IdleThreshold time.Duration `envconfig:"VIETSHOP_CART_IDLE_THRESHOLD" default:"5m"`
	SyncInterval  time.Duration `envconfig:"VIETSHOP_CART_SYNC_INTERVAL" default:"1m"`
	ScanBatchSize int           `envconfig:"VIETSHOP_CART_SCAN_BATCH_SIZE" default:"100"`
}

type SweeperConfig struct {
	OrderTTL           time.Duration `envconfig:"VIETSHOP_ORDER_TTL" default:"15m"`
	ExpirationInterval time.Duration `envconfig:"VIETSHOP_ORDER_EXPIRATION_INTERVAL" default:"5m"`
	UseDistributedLock bool          `envconfig:"VIETSHOP_SWEEPER_DISTRIBUTED_LOCK" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VIETSHOP_AUTO_MIGRATE" default:"false"`
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
