package opt

import (
	"fmt"

	"haulopt/internal/catalog"
	"haulopt/internal/lp"
)

// ProblemName labels every haulage allocation model.
const ProblemName = "haulage_allocation"

// Model is a built LP together with the handles needed to read it back.
type Model struct {
	Problem   *lp.Problem
	Plan      *Plan
	Routes    []catalog.Route
	Yields    []float64 // tons per truck-hour, indexed like Routes
	Caps      []float64 // tons per day, indexed like Routes
	Tonnage   [][]lp.Var
	Deviation []lp.Var
}

// BuildModel encodes the allocation problem for plan over the routes of cat:
//
//	min  sum_p z[p]
//	s.t. sum_r x[p,r] = tonnage(p)
//	     U(p) - z[p] <= target(p),  U(p) + z[p] >= target(p)
//	     x[p,r] <= cap(r)
//
// where U(p) = sum_r x[p,r] / (yield(r) * hours(p)). Periods without machine
// hours get every x pinned to 0 and z[p] >= target(p). Routes with zero
// yield are pinned to 0 in every period.
func BuildModel(cat *catalog.Catalog, plan *Plan) *Model {
	m := &Model{
		Problem:   lp.NewProblem(ProblemName),
		Plan:      plan,
		Routes:    cat.Routes,
		Yields:    make([]float64, len(cat.Routes)),
		Caps:      make([]float64, len(cat.Routes)),
		Tonnage:   make([][]lp.Var, len(plan.Periods)),
		Deviation: make([]lp.Var, len(plan.Periods)),
	}
	for r, route := range cat.Routes {
		m.Yields[r] = cat.EffectiveYield(route)
		m.Caps[r] = cat.DailyCapacity(route, plan.NumDays)
	}

	pb := m.Problem
	for i, per := range plan.Periods {
		m.Tonnage[i] = make([]lp.Var, len(m.Routes))
		for r, route := range m.Routes {
			m.Tonnage[i][r] = pb.NewVar(fmt.Sprintf("tonnage_moved[%s,%s,%s]", per.Label, route.Solid, route.Destination))
		}
	}
	obj := make([]lp.Term, len(plan.Periods))
	for i, per := range plan.Periods {
		m.Deviation[i] = pb.NewVar(fmt.Sprintf("deviation_from_target[%s]", per.Label))
		obj[i] = lp.T(m.Deviation[i], 1)
	}
	pb.SetObjective(obj...)

	for i, per := range plan.Periods {
		terms := make([]lp.Term, len(m.Routes))
		for r := range m.Routes {
			terms[r] = lp.T(m.Tonnage[i][r], 1)
		}
		pb.AddConstraint("Total_Tonnage_Requirement_Period_"+per.Label, terms, lp.EQ, per.TargetTonnage)
	}

	for i, per := range plan.Periods {
		z := m.Deviation[i]
		hours := plan.AvailableHours(per)
		if hours <= 0 {
			for r, route := range m.Routes {
				pb.AddConstraint(fmt.Sprintf("No_Tonnage_No_Capacity_Day_%s_Route_%s_%s", per.Label, route.Solid, route.Destination),
					[]lp.Term{lp.T(m.Tonnage[i][r], 1)}, lp.EQ, 0)
			}
			pb.AddConstraint("Deviation_High_No_Capacity_Day_"+per.Label, []lp.Term{lp.T(z, 1)}, lp.GE, per.TargetUtilization)
			continue
		}

		var use []lp.Term
		for r, y := range m.Yields {
			if y > 0 {
				use = append(use, lp.T(m.Tonnage[i][r], 1/(y*hours)))
			}
		}
		lower := append(append([]lp.Term(nil), use...), lp.T(z, -1))
		upper := append(append([]lp.Term(nil), use...), lp.T(z, 1))
		pb.AddConstraint("Deviation_Lower_Bound_Period_"+per.Label, lower, lp.LE, per.TargetUtilization)
		pb.AddConstraint("Deviation_Upper_Bound_Period_"+per.Label, upper, lp.GE, per.TargetUtilization)

		for r, route := range m.Routes {
			if m.Yields[r] == 0 {
				pb.AddConstraint(fmt.Sprintf("Disabled_Route_%s_%s_Day_%s", route.Solid, route.Destination, per.Label),
					[]lp.Term{lp.T(m.Tonnage[i][r], 1)}, lp.EQ, 0)
			}
		}
	}

	for r, route := range m.Routes {
		for i, per := range plan.Periods {
			pb.AddConstraint(fmt.Sprintf("Max_Tonnage_for_Solid_%s_to_%s_Day_%s", route.Solid, route.Destination, per.Label),
				[]lp.Term{lp.T(m.Tonnage[i][r], 1)}, lp.LE, m.Caps[r])
		}
	}
	return m
}
