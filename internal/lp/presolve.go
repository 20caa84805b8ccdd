package lp

import (
	"fmt"
	"math"
)

// feasTol is the absolute slack allowed when checking rows whose variables
// have all been fixed by presolve.
const feasTol = 1e-9

// row is a constraint in column form with duplicate terms merged and zero
// coefficients dropped.
type row struct {
	name  string
	cols  []int
	coefs []float64
	sense Sense
	rhs   float64
}

// reduced is the problem left after presolve: rows still to be solved with
// fixed columns folded into their right-hand sides.
type reduced struct {
	rows   []row
	fixed  []bool
	values []float64
}

func compact(c Constraint) row {
	idx := make(map[int]int, len(c.Terms))
	r := row{name: c.Name, sense: c.Sense, rhs: c.RHS}
	for _, t := range c.Terms {
		if k, ok := idx[t.Var.id]; ok {
			r.coefs[k] += t.Coef
			continue
		}
		idx[t.Var.id] = len(r.cols)
		r.cols = append(r.cols, t.Var.id)
		r.coefs = append(r.coefs, t.Coef)
	}
	out := row{name: r.name, sense: r.sense, rhs: r.rhs}
	for k, col := range r.cols {
		if r.coefs[k] != 0 {
			out.cols = append(out.cols, col)
			out.coefs = append(out.coefs, r.coefs[k])
		}
	}
	return out
}

// residual returns r restricted to unfixed columns.
func (r row) residual(fixed []bool, values []float64) row {
	out := row{name: r.name, sense: r.sense, rhs: r.rhs}
	for k, col := range r.cols {
		if fixed[col] {
			out.rhs -= r.coefs[k] * values[col]
			continue
		}
		out.cols = append(out.cols, col)
		out.coefs = append(out.coefs, r.coefs[k])
	}
	return out
}

func satisfiedEmpty(sense Sense, rhs float64) bool {
	switch sense {
	case LE:
		return rhs >= -feasTol
	case GE:
		return rhs <= feasTol
	default:
		return math.Abs(rhs) <= feasTol
	}
}

// presolve fixes columns pinned by singleton equalities, drops rows that no
// longer reference any free column, and zeroes columns that appear in no row.
func presolve(p *Problem) (*reduced, error) {
	n := p.NumVars()
	rows := make([]row, len(p.rows))
	for i, c := range p.rows {
		rows[i] = compact(c)
	}
	fixed := make([]bool, n)
	values := make([]float64, n)
	dropped := make([]bool, len(rows))

	for changed := true; changed; {
		changed = false
		for i := range rows {
			if dropped[i] {
				continue
			}
			r := rows[i].residual(fixed, values)
			switch {
			case len(r.cols) == 0:
				if !satisfiedEmpty(r.sense, r.rhs) {
					return nil, fmt.Errorf("%w: constraint %s cannot hold (%s %g)", ErrInfeasible, r.name, r.sense, r.rhs)
				}
				dropped[i] = true
				changed = true
			case len(r.cols) == 1 && r.sense == EQ:
				v := r.rhs / r.coefs[0]
				if v < -feasTol {
					return nil, fmt.Errorf("%w: constraint %s forces %s to %g", ErrInfeasible, r.name, p.names[r.cols[0]], v)
				}
				fixed[r.cols[0]] = true
				values[r.cols[0]] = math.Max(v, 0)
				dropped[i] = true
				changed = true
			}
		}
	}

	red := &reduced{fixed: fixed, values: values}
	used := make([]bool, n)
	for i := range rows {
		if dropped[i] {
			continue
		}
		r := rows[i].residual(fixed, values)
		for _, col := range r.cols {
			used[col] = true
		}
		red.rows = append(red.rows, r)
	}
	for col := 0; col < n; col++ {
		if fixed[col] || used[col] {
			continue
		}
		if p.cost[col] < 0 {
			return nil, fmt.Errorf("%w: variable %s is unconstrained with negative cost", ErrUnbounded, p.names[col])
		}
		fixed[col] = true
	}
	return red, nil
}

// block is a set of rows sharing no column with any other block.
type block struct {
	rows []int
	cols []int
}

// split partitions the reduced rows into independent blocks with a
// union-find over shared columns. Order follows first appearance.
func (red *reduced) split() []block {
	parent := map[int]int{}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, r := range red.rows {
		for _, col := range r.cols {
			if _, ok := parent[col]; !ok {
				parent[col] = col
			}
		}
		for _, col := range r.cols[1:] {
			a, b := find(r.cols[0]), find(col)
			if a != b {
				parent[b] = a
			}
		}
	}

	index := map[int]int{}
	var blocks []block
	seen := map[int]bool{}
	for i, r := range red.rows {
		root := find(r.cols[0])
		bi, ok := index[root]
		if !ok {
			bi = len(blocks)
			index[root] = bi
			blocks = append(blocks, block{})
		}
		blocks[bi].rows = append(blocks[bi].rows, i)
		for _, col := range r.cols {
			if !seen[col] {
				seen[col] = true
				blocks[bi].cols = append(blocks[bi].cols, col)
			}
		}
	}
	return blocks
}
