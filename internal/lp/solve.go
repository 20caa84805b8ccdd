package lp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// DefaultTimeLimit is the wall-clock budget of a Solve call.
const DefaultTimeLimit = 60 * time.Second

// Options tunes Solve. Zero values select defaults.
type Options struct {
	TimeLimit time.Duration
	Tolerance float64 // simplex optimality tolerance
	Workers   int     // concurrent block solves
}

func (o Options) withDefaults() Options {
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-10
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

type outcome struct {
	sol *Solution
	err error
}

// Solve minimizes p within opts.TimeLimit. The returned Solution always
// carries a Status; err is non-nil exactly when the status is not Optimal.
// When the budget runs out Solve returns StatusNotSolved without waiting for
// in-flight block solves, which finish in the background on private data.
func Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	opts = opts.withDefaults()
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, opts.TimeLimit)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		sol, err := solve(ctx, p, opts)
		done <- outcome{sol: sol, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}
	if out.err != nil {
		err := out.err
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrTimeLimit, opts.TimeLimit)
		}
		return &Solution{Status: StatusOf(err), Elapsed: time.Since(start)}, err
	}
	out.sol.Elapsed = time.Since(start)
	return out.sol, nil
}

func solve(ctx context.Context, p *Problem, opts Options) (sol *Solution, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol, err = nil, fmt.Errorf("%w: %v", ErrNumerical, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	red, err := presolve(p)
	if err != nil {
		return nil, err
	}
	blocks := red.split()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, b := range blocks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return solveBlock(p, red, b, opts.Tolerance)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Solution{
		Status:    StatusOptimal,
		Objective: p.ObjectiveValue(red.values),
		Values:    red.values,
		Blocks:    len(blocks),
	}, nil
}

// standardForm turns a block into min c'x s.t. Ax = b, x >= 0 with one slack
// column per inequality. Rows are negated to keep b >= 0 and scaled to unit
// max-norm; b is then divided by sigma so the simplex works on O(1) values.
func standardForm(p *Problem, red *reduced, b block) (c []float64, a *mat.Dense, rhs []float64, sigma float64) {
	pos := make(map[int]int, len(b.cols))
	for k, col := range b.cols {
		pos[col] = k
	}
	slacks := 0
	for _, ri := range b.rows {
		if red.rows[ri].sense != EQ {
			slacks++
		}
	}
	m, n := len(b.rows), len(b.cols)+slacks
	data := make([]float64, m*n)
	rhs = make([]float64, m)
	slack := len(b.cols)
	for i, ri := range b.rows {
		r := red.rows[ri]
		line := data[i*n : (i+1)*n]
		for k, col := range r.cols {
			line[pos[col]] = r.coefs[k]
		}
		switch r.sense {
		case LE:
			line[slack] = 1
			slack++
		case GE:
			line[slack] = -1
			slack++
		}
		rhs[i] = r.rhs
		if rhs[i] < 0 {
			rhs[i] = -rhs[i]
			for j := range line {
				line[j] = -line[j]
			}
		}
		var norm float64
		for _, v := range line {
			norm = math.Max(norm, math.Abs(v))
		}
		for j := range line {
			line[j] /= norm
		}
		rhs[i] /= norm
	}
	sigma = 1
	for _, v := range rhs {
		sigma = math.Max(sigma, v)
	}
	for i := range rhs {
		rhs[i] /= sigma
	}
	c = make([]float64, n)
	for k, col := range b.cols {
		c[k] = p.cost[col]
	}
	return c, mat.NewDense(m, n, data), rhs, sigma
}

// solveBlock runs gonum's simplex on one block and writes its columns into
// red.values. Blocks own disjoint columns, so concurrent calls do not race.
func solveBlock(p *Problem, red *reduced, b block, tol float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNumerical, r)
		}
	}()
	c, a, rhs, sigma := standardForm(p, red, b)
	m, n := a.Dims()
	first := red.rows[b.rows[0]].name
	if m > n {
		return fmt.Errorf("%w: block at %s has %d rows and %d columns", ErrNumerical, first, m, n)
	}
	_, x, err := lp.Simplex(c, a, rhs, tol, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return fmt.Errorf("%w: block at %s", ErrInfeasible, first)
	case errors.Is(err, lp.ErrUnbounded):
		return fmt.Errorf("%w: block at %s", ErrUnbounded, first)
	default:
		return fmt.Errorf("%w: block at %s: %v", ErrNumerical, first, err)
	}
	for k, col := range b.cols {
		v := x[k] * sigma
		if v < 0 {
			v = 0
		}
		red.values[col] = v
	}
	return nil
}
