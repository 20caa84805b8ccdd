// Package api implements the HTTP handlers of the haulage optimizer.
package api

import (
    "context"
    "errors"
    "fmt"
    "log"

    "golang.org/x/time/rate"

    "haulopt/internal/catalog"
    "haulopt/internal/config"
    "haulopt/internal/opt"
)

// pinger is implemented by dependencies checked by /readyz.
type pinger interface{ Ping(ctx context.Context) error }

type Server struct {
    Cfg     config.Config
    Catalog *catalog.Catalog
    Engine  *opt.Engine
    Broker  EventBroker

    limiter *rate.Limiter
    ready   map[string]pinger
    closers []func() error
}

// NewServer loads the route catalog and wires the engine and event broker
// from cfg. The catalog comes from Postgres when CatalogDatabaseURL is set,
// else from CatalogPath, else the embedded default.
func NewServer(cfg config.Config) (*Server, error) {
    s := &Server{Cfg: cfg, ready: map[string]pinger{}}

    switch {
    case cfg.CatalogDatabaseURL != "":
        pg, err := catalog.NewPostgres(cfg.CatalogDatabaseURL)
        if err != nil {
            return nil, fmt.Errorf("catalog database: %w", err)
        }
        s.closers = append(s.closers, pg.Close)
        if cfg.DBMigrate {
            if err := pg.MigrateDir(cfg.MigrationsDir); err != nil {
                log.Printf("warning: catalog migrations: %v", err)
            }
        }
        cat, err := pg.Load(context.Background(), cfg.CatalogName)
        if err != nil {
            _ = s.Close()
            return nil, fmt.Errorf("load catalog: %w", err)
        }
        s.Catalog = cat
        s.ready["catalog_db"] = pg
    case cfg.CatalogPath != "":
        cat, err := catalog.LoadFile(cfg.CatalogPath)
        if err != nil {
            return nil, err
        }
        s.Catalog = cat
    default:
        cat, err := catalog.Default()
        if err != nil {
            return nil, err
        }
        s.Catalog = cat
    }

    // Broker selection
    var broker EventBroker = NewBroker()
    if cfg.RedisURL != "" {
        if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
            broker = rb
            s.ready["redis"] = rb
            s.closers = append(s.closers, rb.Close)
        } else {
            log.Printf("warning: redis broker unavailable, using in-memory events: %v", err)
        }
    }
    s.init(broker)
    return s, nil
}

// NewServerWithCatalog builds a Server around an already loaded catalog and
// an in-memory broker.
func NewServerWithCatalog(cfg config.Config, cat *catalog.Catalog) *Server {
    s := &Server{Cfg: cfg, Catalog: cat, ready: map[string]pinger{}}
    s.init(NewBroker())
    return s
}

func (s *Server) init(broker EventBroker) {
    s.Broker = broker
    s.Engine = opt.NewEngine(s.Catalog,
        opt.WithTimeLimit(s.Cfg.SolverTimeLimit),
        opt.WithWorkers(s.Cfg.SolverWorkers),
    )
    if s.Cfg.RateRPS > 0 {
        s.limiter = rate.NewLimiter(rate.Limit(s.Cfg.RateRPS), s.Cfg.RateBurst)
    }
}

// Close releases the catalog database and Redis connections.
func (s *Server) Close() error {
    var errs []error
    for _, c := range s.closers {
        errs = append(errs, c())
    }
    s.closers = nil
    return errors.Join(errs...)
}
