package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Dispatch     DispatchConfig
	Pricing      PricingConfig
	Payouts      PayoutsConfig
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
	if err := cfg.Dispatch.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FORKFLEET_APP_ENV" required:"true"`
	Port         string `envconfig:"FORKFLEET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FORKFLEET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FORKFLEET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind        string `envconfig:"FORKFLEET_SERVICE_KIND" default:"api"`
	MetricsPort string `envconfig:"FORKFLEET_METRICS_PORT" default:"9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"FORKFLEET_DB_DSN"`
	Driver string `envconfig:"FORKFLEET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FORKFLEET_DB_HOST"`
	LegacyPort     int    `envconfig:"FORKFLEET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FORKFLEET_DB_USER"`
	LegacyPassword string `envconfig:"FORKFLEET_DB_PASSWORD"`
	LegacyName     string `envconfig:"FORKFLEET_DB_NAME"`
	LegacySSLMode  string `envconfig:"FORKFLEET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FORKFLEET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FORKFLEET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FORKFLEET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FORKFLEET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FORKFLEET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FORKFLEET_REDIS_ADDR"`
	Password     string        `envconfig:"FORKFLEET_REDIS_PASSWORD"`
	DB           int           `envconfig:"FORKFLEET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FORKFLEET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FORKFLEET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FORKFLEET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FORKFLEET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FORKFLEET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FORKFLEET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FORKFLEET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FORKFLEET_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FORKFLEET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FORKFLEET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FORKFLEET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FORKFLEET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FORKFLEET_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FORKFLEET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FORKFLEET_AUTO_MIGRATE" default:"false"`
}

// DispatchConfig tunes the batch assignment loop.
type DispatchConfig struct {
	BatchInterval         time.Duration `envconfig:"FORKFLEET_DISPATCH_BATCH_INTERVAL" default:"3m"`
	RunTimeout            time.Duration `envconfig:"FORKFLEET_DISPATCH_RUN_TIMEOUT" default:"90s"`
	AgentSpeedKMPH        float64       `envconfig:"FORKFLEET_DISPATCH_AGENT_SPEED_KMPH" default:"25"`
	PrepTime              time.Duration `envconfig:"FORKFLEET_DISPATCH_PREP_TIME" default:"8m"`
	InitialGuaranteeRatio float64       `envconfig:"FORKFLEET_DISPATCH_INITIAL_GUARANTEE_RATIO" default:"0.25"`
	RatioScope            string        `envconfig:"FORKFLEET_DISPATCH_RATIO_SCOPE" default:"whole_pool"`
	PriorVariance         float64       `envconfig:"FORKFLEET_DISPATCH_PRIOR_VARIANCE" default:"0.05"`
}

func (d DispatchConfig) Scope() enums.GuaranteeRatioScope {
	scope, err := enums.ParseGuaranteeRatioScope(d.RatioScope)
	if err != nil {
		return enums.RatioScopeWholePool
	}
	return scope
}

func (d DispatchConfig) validate() error {
	if d.AgentSpeedKMPH <= 0 {
		return fmt.Errorf("dispatch: agent speed must be positive, got %f", d.AgentSpeedKMPH)
	}
	if d.InitialGuaranteeRatio < 0 || d.InitialGuaranteeRatio > 1 {
		return fmt.Errorf("dispatch: initial guarantee ratio must be in [0,1], got %f", d.InitialGuaranteeRatio)
	}
	if _, err := enums.ParseGuaranteeRatioScope(d.RatioScope); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}

// PricingConfig controls delivery fee computation.
type PricingConfig struct {
	BaseFeeCents  int64 `envconfig:"FORKFLEET_PRICING_BASE_FEE_CENTS" default:"3000"`
	PerKmFeeCents int64 `envconfig:"FORKFLEET_PRICING_PER_KM_FEE_CENTS" default:"800"`
}

// PayoutsConfig controls period settlement.
type PayoutsConfig struct {
	PayPerHourCents int64 `envconfig:"FORKFLEET_PAYOUTS_PAY_PER_HOUR_CENTS" default:"10000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FORKFLEET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FORKFLEET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FORKFLEET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic     string `envconfig:"FORKFLEET_PUBSUB_ORDERS_TOPIC" required:"true"`
	DispatchTopic   string `envconfig:"FORKFLEET_PUBSUB_DISPATCH_TOPIC" required:"true"`
	SettlementTopic string `envconfig:"FORKFLEET_PUBSUB_SETTLEMENT_TOPIC" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FORKFLEET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FORKFLEET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FORKFLEET_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
