package shared

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

type Postgres struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DB       string `env:"POSTGRES_DB" envDefault:"reviews_db"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR"` // empty disables the cache
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TTLSecs  int    `env:"CACHE_TTL_SECONDS" envDefault:"60"`
}

type Config struct {
	AppEnv          string        `env:"APP_ENV" envDefault:"prod"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr        string        `env:"GRPC_ADDR" envDefault:":50051"`
	MetricsAddr     string        `env:"METRICS_ADDR"`
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	MySQLDSN        string        `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/reviews?parseTime=true&loc=UTC"`
	MaxConns        int           `env:"DB_MAX_CONNS" envDefault:"25"`
	MaxIdleTime     time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"15m"`
	ScoreMax        int32         `env:"REVIEW_SCORE_MAX" envDefault:"5"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	Postgres Postgres
	Redis    Redis
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.normalize(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) normalize() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER %q: want postgres, mysql or memory", c.Driver)
	}
	if c.ScoreMax <= 0 {
		return errors.New("REVIEW_SCORE_MAX must be positive")
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 25
	}

	if c.Driver == DriverPostgres && c.Postgres.URL == "" {
		if c.Postgres.User == "" {
			log.Warn().Msg("POSTGRES_USER is empty")
		}
		c.Postgres.URL = c.Postgres.assemble()
	}
	return nil
}

func (p Postgres) assemble() string {
	u := url.URL{Scheme: "postgres", Host: p.Host, Path: "/" + p.DB}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else if p.User != "" {
		u.User = url.User(p.User)
	}
	return u.String()
}

// CacheTTL is the lifetime of a cached reviews page.
func (c Config) CacheTTL() time.Duration { return time.Duration(c.Redis.TTLSecs) * time.Second }
