package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/user-directory/pkg/logger"
)

// Store drivers.
const (
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Config struct {
	Port      string        `env:"PORT,       default=8080"`
	Env       string        `env:"ENV,        default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=30m"`
	LogLevel  string        `env:"LOG_LEVEL,  default=info"`
	LogPretty bool          `env:"LOG_PRETTY, default=false"`

	Store     StoreConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	Bootstrap BootstrapConfig
}

type StoreConfig struct {
	Driver          string        `env:"STORE_DRIVER,     default=redis"`
	Codec           string        `env:"STORE_CODEC,      default=json"`
	Timeout         time.Duration `env:"STORE_TIMEOUT,    default=5s"`
	ConnectAttempts int           `env:"CONNECT_ATTEMPTS, default=4"`
	ConnectBackoff  time.Duration `env:"CONNECT_BACKOFF,  default=1s"`
	CASMaxAttempts  int           `env:"CAS_MAX_ATTEMPTS, default=5"`
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR,       default=localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB,         default=0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX, default=user:"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=user_directory"`
}

// BootstrapConfig names the admin created at startup when the directory has
// no such user yet. Both fields empty disables it.
type BootstrapConfig struct {
	AdminID       string `env:"BOOTSTRAP_ADMIN_ID"`
	AdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through lookuper and validates it.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Store.Driver {
	case DriverRedis, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q must be one of: redis mongo memory", c.Store.Driver))
	}
	switch c.Store.Codec {
	case "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("STORE_CODEC %q must be one of: json msgpack", c.Store.Codec))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Store.CASMaxAttempts <= 0 {
		errs = append(errs, errors.New("CAS_MAX_ATTEMPTS must be positive"))
	}
	if (c.Bootstrap.AdminID == "") != (c.Bootstrap.AdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_ID and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool { return c.Env == "production" }
