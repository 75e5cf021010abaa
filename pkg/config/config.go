package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "STOCKCOUNT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv       = "STOCKCOUNT_APP_ENV"
	EnvPort         = "STOCKCOUNT_APP_PORT"
	EnvDBDSN        = "STOCKCOUNT_DB_DSN"
	EnvDBHost       = "STOCKCOUNT_DB_HOST"
	EnvDBUser       = "STOCKCOUNT_DB_USER"
	EnvDBName       = "STOCKCOUNT_DB_NAME"
	EnvRedisURL     = "STOCKCOUNT_REDIS_URL"
	EnvJWTSecret    = "STOCKCOUNT_JWT_SECRET"
	EnvJWTIssuer    = "STOCKCOUNT_JWT_ISSUER"
	EnvJWTExpMins   = "STOCKCOUNT_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID = "STOCKCOUNT_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"STOCKCOUNT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKCOUNT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKCOUNT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKCOUNT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKCOUNT_DB_DSN"`
	Driver string `envconfig:"STOCKCOUNT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKCOUNT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKCOUNT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKCOUNT_DB_USER"`
	LegacyPassword string `envconfig:"STOCKCOUNT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKCOUNT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKCOUNT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKCOUNT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKCOUNT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKCOUNT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKCOUNT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKCOUNT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKCOUNT_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKCOUNT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKCOUNT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKCOUNT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKCOUNT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKCOUNT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKCOUNT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKCOUNT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOCKCOUNT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOCKCOUNT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STOCKCOUNT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STOCKCOUNT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOCKCOUNT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOCKCOUNT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOCKCOUNT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOCKCOUNT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOCKCOUNT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOCKCOUNT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"STOCKCOUNT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"STOCKCOUNT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKCOUNT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOCKCOUNT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"STOCKCOUNT_PUBSUB_DOMAIN_TOPIC" default:"sc-domain-events"`
	DomainSubscription string `envconfig:"STOCKCOUNT_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOCKCOUNT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOCKCOUNT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOCKCOUNT_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
