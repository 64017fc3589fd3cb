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

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Outbox        OutboxConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"FORKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"FORKLINE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FORKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FORKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FORKLINE_DB_DSN"`
	Driver string `envconfig:"FORKLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FORKLINE_DB_HOST"`
	Port     int    `envconfig:"FORKLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"FORKLINE_DB_USER"`
	Password string `envconfig:"FORKLINE_DB_PASSWORD"`
	Name     string `envconfig:"FORKLINE_DB_NAME"`
	SSLMode  string `envconfig:"FORKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FORKLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FORKLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FORKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FORKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either FORKLINE_DB_DSN or host/user/name parts are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FORKLINE_REDIS_URL"`
	Address      string        `envconfig:"FORKLINE_REDIS_ADDR"`
	Password     string        `envconfig:"FORKLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FORKLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FORKLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FORKLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FORKLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FORKLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FORKLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FORKLINE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FORKLINE_JWT_ISSUER" default:"forkline"`
	ExpirationMinutes      int    `envconfig:"FORKLINE_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"FORKLINE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FORKLINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FORKLINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FORKLINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FORKLINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FORKLINE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FORKLINE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FORKLINE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FORKLINE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type OutboxConfig struct {
	RelayInterval time.Duration `envconfig:"FORKLINE_OUTBOX_RELAY_INTERVAL" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FORKLINE_AUTO_MIGRATE" default:"false"`
}
