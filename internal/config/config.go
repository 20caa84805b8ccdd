// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"haulopt/internal/lp"
)

type Config struct {
	Port               string
	CatalogPath        string // YAML catalog; empty selects the embedded one
	CatalogDatabaseURL string // takes precedence over CatalogPath
	CatalogName        string // catalog label when loaded from the database
	DBMigrate          bool
	MigrationsDir      string
	RedisURL           string
	AllowOrigins       []string
	RateRPS            float64 // 0 disables rate limiting
	RateBurst          int
	SolverTimeLimit    time.Duration
	SolverWorkers      int
}

func Default() Config {
	return Config{
		Port:            "8080",
		CatalogName:     "copiapo",
		DBMigrate:       true,
		MigrationsDir:   "db/migrations",
		AllowOrigins:    []string{"*"},
		RateBurst:       5,
		SolverTimeLimit: lp.DefaultTimeLimit,
		SolverWorkers:   runtime.GOMAXPROCS(0),
	}
}

// Load overlays environment variables on Default. Unset or blank variables
// keep their defaults; malformed ones are reported together.
func Load() (Config, error) { return load(os.Getenv) }

func load(getenv func(string) string) (Config, error) {
	c := Default()
	var errs []string
	env := func(key string) (string, bool) {
		v := strings.TrimSpace(getenv(key))
		return v, v != ""
	}

	if v, ok := env("PORT"); ok {
		c.Port = v
	}
	if v, ok := env("CATALOG_PATH"); ok {
		c.CatalogPath = v
	}
	if v, ok := env("CATALOG_DATABASE_URL"); ok {
		c.CatalogDatabaseURL = v
	}
	if v, ok := env("CATALOG_NAME"); ok {
		c.CatalogName = v
	}
	if v, ok := env("DB_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("DB_MIGRATE: %q is not a boolean", v))
		}
		c.DBMigrate = b
	}
	if v, ok := env("MIGRATIONS_DIR"); ok {
		c.MigrationsDir = v
	}
	if v, ok := env("REDIS_URL"); ok {
		c.RedisURL = v
	}
	if v, ok := env("ALLOW_ORIGINS"); ok {
		c.AllowOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.AllowOrigins = append(c.AllowOrigins, o)
			}
		}
	}
	if v, ok := env("RATE_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			errs = append(errs, fmt.Sprintf("RATE_RPS: %q is not a non-negative number", v))
		}
		c.RateRPS = f
	}
	if v, ok := env("RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Sprintf("RATE_BURST: %q is not a positive integer", v))
		}
		c.RateBurst = n
	}
	if v, ok := env("SOLVER_TIME_LIMIT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("SOLVER_TIME_LIMIT: %q is not a positive duration", v))
		}
		c.SolverTimeLimit = d
	}
	if v, ok := env("SOLVER_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Sprintf("SOLVER_WORKERS: %q is not a positive integer", v))
		}
		c.SolverWorkers = n
	}

	if len(errs) > 0 {
		return c, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// Addr is the listen address for Port.
func (c Config) Addr() string { return ":" + c.Port }
