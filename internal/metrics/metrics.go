package metrics

import (
    "net/http"
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // OptimizeRuns counts optimization calls by result status ("Optimal", "Infeasible", "Error", ...)
    OptimizeRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "haulopt_optimize_runs_total", Help: "Optimization runs by result status."},
        []string{"status"},
    )
    // OptimizeDuration tracks wall time of a run including model building
    OptimizeDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "haulopt_optimize_duration_seconds", Help: "Optimization run duration in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}},
        []string{"status"},
    )
    // LPSize reports the dimensions of the most recent model: variables, constraints, blocks
    LPSize = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{Name: "haulopt_lp_size", Help: "Size of the most recently built LP."},
        []string{"dimension"},
    )
    // RunEvents counts run events handed to the broker by outcome (published, failed)
    RunEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "haulopt_run_events_total", Help: "Run events published to the event broker."},
        []string{"outcome"},
    )
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(OptimizeRuns)
        Registry.MustRegister(OptimizeDuration)
        Registry.MustRegister(LPSize)
        Registry.MustRegister(RunEvents)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once

// Handler serves the dedicated registry in the Prometheus text format.
func Handler() http.Handler {
    RegisterDefault()
    return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
