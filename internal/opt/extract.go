package opt

import (
	"haulopt/internal/lp"
	"haulopt/internal/model"
)

// Extract reads an optimal solution of m into the wire result. Realized
// utilization is recomputed from route tonnages and yields rather than read
// from the solver. Values the solver did not report count as 0.
func Extract(m *Model, sol *lp.Solution) model.Result {
	plan := m.Plan
	res := model.Result{
		Status:             string(lp.StatusOptimal),
		UtilizationSummary: make([]model.UtilizationEntry, 0, len(plan.Periods)),
		DailyTonnage:       make([]model.TonnageEntry, 0, len(plan.Periods)),
		RouteAllocations:   make(map[string]map[string]float64, len(plan.Periods)),
	}
	obj := sol.Objective
	res.ObjectiveValue = &obj

	var utilSum float64
	for i, per := range plan.Periods {
		alloc := make(map[string]float64, len(m.Routes))
		var tons, truckHours float64
		for r, route := range m.Routes {
			v := sol.Value(m.Tonnage[i][r])
			alloc[route.Key()] = v
			tons += v
			if m.Yields[r] > 0 {
				truckHours += v / m.Yields[r]
			}
		}
		res.RouteAllocations[per.Label] = alloc

		var util float64
		if h := plan.AvailableHours(per); h > 0 {
			util = truckHours / h
		}
		utilSum += util

		res.UtilizationSummary = append(res.UtilizationSummary, model.UtilizationEntry{
			Period:            per.Label,
			RealUtilization:   util,
			TargetUtilization: per.TargetUtilization,
			Deviation:         sol.Value(m.Deviation[i]),
		})
		res.DailyTonnage = append(res.DailyTonnage, model.TonnageEntry{Period: per.Label, Tonnage: tons})
	}

	var avg float64
	if plan.NumDays > 0 {
		avg = utilSum / float64(plan.NumDays)
	}
	res.AvgUtilization = &avg
	return res
}
