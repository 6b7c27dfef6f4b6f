package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CacheInMemory = "inmemory"
	CacheRedis    = "redis"
	CacheNone     = "none"
)

type Env struct {
	AppPort        int           `envconfig:"APP_PORT"        default:"8080"`
	RedirectOrigin string        `envconfig:"REDIRECT_ORIGIN" default:"http://localhost:8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	DBDriver       string `envconfig:"DB_DRIVER"         default:"postgres"`
	DBHost         string `envconfig:"DB_HOST"           default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT"           default:"5555"`
	DBName         string `envconfig:"DB_NAME"           default:"test"`
	DBUser         string `envconfig:"DB_USER"           default:"test"`
	DBPassword     string `envconfig:"DB_PASSWORD"       default:"test"`
	DBSSLMode      string `envconfig:"DB_SSLMODE"        default:"disable"`
	DBTimeZone     string `envconfig:"DB_TIMEZONE"       default:"UTC"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	SQLitePath     string `envconfig:"SQLITE_PATH"       default:"shortcode.db"`

	CacheEngine  string        `envconfig:"CACHE_ENGINE"   default:"inmemory"`
	CacheHost    string        `envconfig:"CACHE_HOST"     default:"localhost"`
	CachePort    int           `envconfig:"CACHE_PORT"     default:"6679"`
	CacheHitTTL  time.Duration `envconfig:"CACHE_HIT_TTL"  default:"24h"`
	CacheMissTTL time.Duration `envconfig:"CACHE_MISS_TTL" default:"5s"`

	CodeLength  int `envconfig:"CODE_LENGTH"  default:"6"`
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"10"`

	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL"       default:"info"`
	LogFile        string `envconfig:"LOG_FILE"`
	LogMaxSize     int    `envconfig:"LOG_MAX_SIZE"    default:"100"`
	LogMaxAge      int    `envconfig:"LOG_MAX_AGE"     default:"7"`
}

// Process loads an optional .env file and then reads the environment into Env.
func Process() (env Env, err error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	if err = envconfig.Process("", &env); err != nil {
		return
	}
	err = env.Validate()
	return
}

func (e Env) Validate() error {
	switch e.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", e.DBDriver)
	}
	switch e.CacheEngine {
	case CacheInMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("unsupported CACHE_ENGINE %q", e.CacheEngine)
	}
	if e.CodeLength < 3 || e.CodeLength > 15 {
		return fmt.Errorf("CODE_LENGTH must be within [3, 15], got %d", e.CodeLength)
	}
	if e.MaxAttempts < 1 {
		return errors.New("MAX_ATTEMPTS must be positive")
	}
	if e.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
