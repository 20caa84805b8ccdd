package api

import (
    "net/http"
    "time"

    "haulopt/internal/buildinfo"
)

// DebugJSON reports build information and the effective, non-secret settings.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    _, redisBroker := s.Broker.(*RedisBroker)
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "catalog": map[string]any{
            "name":       s.Catalog.Name,
            "routes":     len(s.Catalog.Routes),
            "degenerate": len(s.Catalog.DegenerateRoutes()),
        },
        "config": map[string]any{
            "PORT": s.Cfg.Port,
            "CATALOG_PATH": s.Cfg.CatalogPath,
            "ALLOW_ORIGINS": s.Cfg.AllowOrigins,
            "RATE_RPS": s.Cfg.RateRPS,
            "RATE_BURST": s.Cfg.RateBurst,
            "SOLVER_TIME_LIMIT": s.Cfg.SolverTimeLimit.String(),
            "SOLVER_WORKERS": s.Cfg.SolverWorkers,
            "HAS_CATALOG_DATABASE_URL": s.Cfg.CatalogDatabaseURL != "",
            "HAS_REDIS_URL": s.Cfg.RedisURL != "",
            "REDIS_BROKER": redisBroker,
        },
    }
    writeJSON(w, http.StatusOK, info)
}
