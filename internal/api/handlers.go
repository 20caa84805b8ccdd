package api

import (
    "context"
    "net/http"
    "time"

    "github.com/google/uuid"

    "haulopt/internal/metrics"
    "haulopt/internal/model"
    "haulopt/internal/opt"
)

// OptimizeHandler handles POST /optimize and /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.Header().Set("Allow", http.MethodPost)
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    if s.limiter != nil && !s.limiter.Allow() {
        w.Header().Set("Retry-After", "1")
        writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "optimization rate limit exceeded", r.URL.Path)
        return
    }
    params, err := decodeParameters(w, r)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }

    runID := uuid.NewString()
    w.Header().Set("X-Run-Id", runID)
    res, stats := s.Engine.Run(r.Context(), params)

    metrics.OptimizeRuns.WithLabelValues(res.Status).Inc()
    metrics.OptimizeDuration.WithLabelValues(res.Status).Observe(stats.Elapsed.Seconds())
    if stats.Variables > 0 {
        metrics.LPSize.WithLabelValues("variables").Set(float64(stats.Variables))
        metrics.LPSize.WithLabelValues("constraints").Set(float64(stats.Constraints))
        metrics.LPSize.WithLabelValues("blocks").Set(float64(stats.Blocks))
    }
    s.publishRun(runID, res, stats)

    code := http.StatusOK
    switch {
    case res.Status == model.StatusError:
        code = http.StatusBadRequest
    case res.Failed():
        code = http.StatusInternalServerError
    }
    writeJSON(w, code, res)
}

// DefaultsHandler returns a complete request body built from the defaults.
func (s *Server) DefaultsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    writeJSON(w, http.StatusOK, map[string]any{
        "defaults": opt.SampleParameters(),
        "solver": map[string]any{
            "timeLimitSeconds": s.Cfg.SolverTimeLimit.Seconds(),
            "workers":          s.Cfg.SolverWorkers,
        },
    })
}

// CatalogHandler handles GET /v1/catalog?numDays=N
func (s *Server) CatalogHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    numDays, err := numDaysQuery(r, opt.DefaultNumDays)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid numDays", err.Error(), r.URL.Path)
        return
    }
    cat := s.Catalog
    routes := make([]model.RouteInfo, 0, len(cat.Routes))
    for _, rt := range cat.Routes {
        y := cat.EffectiveYield(rt)
        routes = append(routes, model.RouteInfo{
            Key:            rt.Key(),
            Solid:          rt.Solid,
            Destination:    rt.Destination,
            CycleMinutes:   rt.CycleMinutes,
            EffectiveYield: y,
            AvailableTons:  rt.AvailableTons,
            DailyCapacity:  cat.DailyCapacity(rt, numDays),
            Degenerate:     y == 0,
        })
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "name":         cat.Name,
        "numDays":      numDays,
        "solids":       cat.Solids,
        "destinations": cat.Destinations,
        "routes":       routes,
    })
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

// ReadyHandler pings the catalog database and Redis when they are configured.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    checks := map[string]string{}
    for name, p := range s.ready {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        err := p.Ping(ctx)
        cancel()
        if err != nil {
            writeProblem(w, 503, "Not Ready", name+": "+err.Error(), r.URL.Path)
            return
        }
        checks[name] = "ok"
    }
    writeJSON(w, 200, map[string]any{"status": "ready", "checks": checks, "routes": len(s.Catalog.Routes)})
}
