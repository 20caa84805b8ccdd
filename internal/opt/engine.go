// Package opt turns haulage request parameters into an LP over the route
// catalog, solves it and shapes the answer for callers.
package opt

import (
	"context"
	"fmt"
	"log"
	"time"

	"haulopt/internal/catalog"
	"haulopt/internal/lp"
	"haulopt/internal/model"
)

// Engine runs allocations against one immutable catalog. It is safe for
// concurrent use; every call builds its own problem.
type Engine struct {
	cat    *catalog.Catalog
	solver lp.Options
	logger *log.Logger
}

type Option func(*Engine)

// WithTimeLimit sets the solver wall-clock budget.
func WithTimeLimit(d time.Duration) Option { return func(e *Engine) { e.solver.TimeLimit = d } }

// WithWorkers bounds the number of periods solved concurrently.
func WithWorkers(n int) Option { return func(e *Engine) { e.solver.Workers = n } }

func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine logs a warning for every catalog route with zero effective yield.
func NewEngine(cat *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{cat: cat, logger: log.Default()}
	for _, o := range opts {
		o(e)
	}
	for _, r := range cat.DegenerateRoutes() {
		e.logger.Printf("warning: route %s has zero effective yield; it will not carry tonnage", r.Key())
	}
	return e
}

func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// RunStats describes the LP behind a result.
type RunStats struct {
	NumDays     int
	Variables   int
	Constraints int
	Blocks      int
	Elapsed     time.Duration
}

// Optimize computes an allocation for params. It never panics and never
// fails outright: errors are reported in the result's Status and Error.
func (e *Engine) Optimize(ctx context.Context, params map[string]any) model.Result {
	res, _ := e.Run(ctx, params)
	return res
}

// Run is Optimize plus statistics about the solved problem.
func (e *Engine) Run(ctx context.Context, params map[string]any) (res model.Result, stats RunStats) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = errorResult(fmt.Errorf("internal error: %v", r))
		}
		stats.Elapsed = time.Since(start)
		if res.Failed() {
			e.logger.Printf("optimize: status=%q days=%d elapsed=%s error=%q", res.Status, stats.NumDays, stats.Elapsed, res.Error)
		} else {
			e.logger.Printf("optimize: status=%q days=%d vars=%d rows=%d blocks=%d objective=%.6f elapsed=%s",
				res.Status, stats.NumDays, stats.Variables, stats.Constraints, stats.Blocks, *res.ObjectiveValue, stats.Elapsed)
		}
	}()

	plan, err := Normalize(params)
	if err != nil {
		return errorResult(err), stats
	}
	stats.NumDays = plan.NumDays

	m := BuildModel(e.cat, plan)
	stats.Variables = m.Problem.NumVars()
	stats.Constraints = m.Problem.NumConstraints()

	sol, err := lp.Solve(ctx, m.Problem, e.solver)
	if err != nil {
		label := string(lp.StatusOf(err))
		if sol != nil {
			label = string(sol.Status)
		}
		e.logger.Printf("optimize: solver: %v", err)
		return model.Result{
			Status: label,
			Error:  fmt.Sprintf("no optimal or feasible solution found (status: %s)", label),
		}, stats
	}
	stats.Blocks = sol.Blocks
	return Extract(m, sol), stats
}

func errorResult(err error) model.Result {
	return model.Result{Status: model.StatusError, Error: err.Error()}
}
