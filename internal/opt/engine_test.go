package opt

import (
	"bytes"
	"context"
	"io"
	"log"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haulopt/internal/catalog"
	"haulopt/internal/model"
)

const tol = 1e-6

func newTestEngine(t *testing.T, cat *catalog.Catalog, opts ...Option) *Engine {
	t.Helper()
	if cat == nil {
		var err error
		cat, err = catalog.Default()
		require.NoError(t, err)
	}
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return NewEngine(cat, opts...)
}

func requireOptimal(t *testing.T, res model.Result) {
	t.Helper()
	require.Equal(t, model.StatusOptimal, res.Status, "error: %s", res.Error)
	require.Empty(t, res.Error)
	require.NotNil(t, res.ObjectiveValue)
	require.NotNil(t, res.AvgUtilization)
}

// checkInvariants asserts the properties every optimal result must hold.
func checkInvariants(t *testing.T, cat *catalog.Catalog, params map[string]any, res model.Result) {
	t.Helper()
	plan, err := Normalize(params)
	require.NoError(t, err)
	require.Len(t, res.UtilizationSummary, plan.NumDays)
	require.Len(t, res.DailyTonnage, plan.NumDays)
	require.Len(t, res.RouteAllocations, plan.NumDays)

	var devSum, utilSum float64
	for i, per := range plan.Periods {
		alloc := res.RouteAllocations[per.Label]
		require.Len(t, alloc, len(cat.Routes))
		var sum float64
		for _, r := range cat.Routes {
			v := alloc[r.Key()]
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, cat.DailyCapacity(r, plan.NumDays)+tol, "route %s day %s", r.Key(), per.Label)
			sum += v
		}
		day := res.DailyTonnage[i]
		assert.Equal(t, per.Label, day.Period)
		assert.InDelta(t, day.Tonnage, sum, tol)
		assert.InDelta(t, per.TargetTonnage, day.Tonnage, tol*math.Max(1, per.TargetTonnage))

		u := res.UtilizationSummary[i]
		assert.Equal(t, per.Label, u.Period)
		assert.Equal(t, per.TargetUtilization, u.TargetUtilization)
		assert.GreaterOrEqual(t, u.Deviation+tol, math.Abs(u.RealUtilization-u.TargetUtilization), "day %s", per.Label)
		devSum += u.Deviation
		utilSum += u.RealUtilization
	}
	assert.InDelta(t, devSum, *res.ObjectiveValue, tol)
	assert.InDelta(t, utilSum/float64(plan.NumDays), *res.AvgUtilization, 1e-12)
}

func TestOptimizeInvariants(t *testing.T) {
	e := newTestEngine(t, nil)
	params := map[string]any{
		"numDays":           3,
		"fleetAvailability": map[string]any{"1": 0.58, "2": 0.88, "3": 0.6},
	}
	res := e.Optimize(context.Background(), params)
	requireOptimal(t, res)
	checkInvariants(t, e.Catalog(), params, res)
}

func TestOptimizeSampleParameters(t *testing.T) {
	e := newTestEngine(t, nil)
	params := SampleParameters()
	res, stats := e.Run(context.Background(), params)
	requireOptimal(t, res)
	checkInvariants(t, e.Catalog(), params, res)
	assert.Equal(t, 31, stats.NumDays)
	assert.Equal(t, 31, stats.Blocks)
	assert.Equal(t, 31*19, stats.Variables)
}

func TestOptimizeTwoDayScenario(t *testing.T) {
	e := newTestEngine(t, nil)
	params := map[string]any{
		"numDays":           2,
		"numTrucks":         8,
		"hoursPerDay":       24,
		"fleetAvailability": map[string]any{"1": 0.75, "2": 0.75},
		"targetUtilization": 0.72,
		"dailyTonnage":      10000,
	}
	res := e.Optimize(context.Background(), params)
	requireOptimal(t, res)
	checkInvariants(t, e.Catalog(), params, res)
	require.Len(t, res.UtilizationSummary, 2)

	// 10000 t cannot keep the fleet 72% busy, so every ton goes to the
	// slowest route to get as close as possible.
	slowYield := 200 / (30.1 / 60)
	want := 10000 / slowYield / (24 * 0.75 * 8)
	for _, u := range res.UtilizationSummary {
		assert.InDelta(t, want, u.RealUtilization, tol)
		assert.InDelta(t, 0.72-want, u.Deviation, tol)
	}
	for _, day := range []string{"1", "2"} {
		assert.InDelta(t, 10000, res.RouteAllocations[day]["F1_1015_0-BOSE"], 1e-4)
	}
}

func TestOptimizeHitsReachableTarget(t *testing.T) {
	e := newTestEngine(t, smallCatalog(30))
	params := map[string]any{
		"numDays":           1,
		"numTrucks":         1,
		"hoursPerDay":       10,
		"fleetAvailability": map[string]any{"1": 1},
		"dailyTonnage":      1000,
	}
	res := e.Optimize(context.Background(), params)
	requireOptimal(t, res)
	checkInvariants(t, e.Catalog(), params, res)

	// 440 t at 100 t/h plus 560 t at 200 t/h is exactly 7.2 of 10 hours.
	assert.InDelta(t, 0, *res.ObjectiveValue, tol)
	assert.InDelta(t, 0.72, res.UtilizationSummary[0].RealUtilization, tol)
	assert.InDelta(t, 440, res.RouteAllocations["1"]["Pit-Mill"], 1e-4)
	assert.InDelta(t, 560, res.RouteAllocations["1"]["Pit-Dump"], 1e-4)
}

func TestOptimizeDegenerateRouteGetsNothing(t *testing.T) {
	cat := smallCatalog(0)
	require.NoError(t, cat.Validate())
	e := newTestEngine(t, cat)
	params := map[string]any{
		"numDays":           1,
		"numTrucks":         1,
		"hoursPerDay":       10,
		"fleetAvailability": map[string]any{"1": 1},
		"targetUtilization": 0.5,
		"dailyTonnage":      1000,
	}
	res := e.Optimize(context.Background(), params)
	requireOptimal(t, res)
	checkInvariants(t, cat, params, res)

	assert.Zero(t, cat.EffectiveYield(cat.Routes[1]))
	assert.Zero(t, res.RouteAllocations["1"]["Pit-Dump"])
	assert.InDelta(t, 1000, res.RouteAllocations["1"]["Pit-Mill"], 1e-4)
	assert.InDelta(t, 1.0, res.UtilizationSummary[0].RealUtilization, tol)
	assert.InDelta(t, 0.5, res.UtilizationSummary[0].Deviation, tol)
}

func TestOptimizeZeroCapacity(t *testing.T) {
	e := newTestEngine(t, nil)
	for name, params := range map[string]map[string]any{
		"no trucks": {"numDays": 3, "numTrucks": 0, "dailyTonnage": 0},
		"no hours":  {"numDays": 3, "hoursPerDay": 0, "dailyTonnage": 0},
	} {
		t.Run(name, func(t *testing.T) {
			res := e.Optimize(context.Background(), params)
			requireOptimal(t, res)
			checkInvariants(t, e.Catalog(), params, res)
			for _, alloc := range res.RouteAllocations {
				for k, v := range alloc {
					assert.Zero(t, v, k)
				}
			}
			for _, u := range res.UtilizationSummary {
				assert.Zero(t, u.RealUtilization)
				assert.InDelta(t, u.TargetUtilization, u.Deviation, tol)
			}
			assert.InDelta(t, 3*0.72, *res.ObjectiveValue, tol)
			assert.Zero(t, *res.AvgUtilization)
		})
	}
}

func TestOptimizeZeroCapacityWithTonnageIsInfeasible(t *testing.T) {
	e := newTestEngine(t, nil)
	res := e.Optimize(context.Background(), map[string]any{"numDays": 2, "numTrucks": 0})
	assert.Equal(t, "Infeasible", res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestOptimizeMoreTrucksNeverHurts(t *testing.T) {
	e := newTestEngine(t, nil)
	prev := math.Inf(1)
	for _, trucks := range []int{2, 3, 4, 6, 8, 12} {
		res := e.Optimize(context.Background(), map[string]any{"numDays": 2, "numTrucks": trucks})
		requireOptimal(t, res)
		assert.LessOrEqual(t, *res.ObjectiveValue, prev+tol, "numTrucks=%d", trucks)
		prev = *res.ObjectiveValue
	}
	assert.InDelta(t, 0, prev, tol)
}

func TestOptimizeInfeasibleTonnage(t *testing.T) {
	e := newTestEngine(t, nil)
	res := e.Optimize(context.Background(), map[string]any{"numDays": 2, "dailyTonnage": 1e7})
	assert.Equal(t, "Infeasible", res.Status)
	assert.Equal(t, "no optimal or feasible solution found (status: Infeasible)", res.Error)
	assert.Nil(t, res.ObjectiveValue)
	assert.Nil(t, res.AvgUtilization)
	assert.Empty(t, res.UtilizationSummary)
	assert.Empty(t, res.RouteAllocations)
}

func TestOptimizeParameterError(t *testing.T) {
	e := newTestEngine(t, nil)
	res := e.Optimize(context.Background(), map[string]any{"numDays": "abc"})
	assert.Equal(t, model.StatusError, res.Status)
	assert.Contains(t, res.Error, "numDays")
	assert.Nil(t, res.ObjectiveValue)
}

func TestOptimizeRejectsNonFiniteParameters(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, params := range []map[string]any{
		{"numDays": 2, "dailyTonnage": "Inf"},
		{"numDays": 2, "targetUtilization": "NaN"},
	} {
		res := e.Optimize(context.Background(), params)
		assert.Equal(t, model.StatusError, res.Status, "%v", params)
		assert.Contains(t, res.Error, "not a finite number")
		assert.Nil(t, res.ObjectiveValue)
	}
}

func TestNewEngineWarnsAboutDegenerateRoutes(t *testing.T) {
	var buf bytes.Buffer
	NewEngine(smallCatalog(0), WithLogger(log.New(&buf, "", 0)))
	assert.Equal(t, "warning: route Pit-Dump has zero effective yield; it will not carry tonnage\n", buf.String())

	buf.Reset()
	NewEngine(smallCatalog(30), WithLogger(log.New(&buf, "", 0)))
	assert.Empty(t, buf.String())
}

func TestOptimizeCancelled(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Optimize(ctx, map[string]any{"numDays": 2})
	assert.Equal(t, "Not Solved", res.Status)
	assert.Equal(t, "no optimal or feasible solution found (status: Not Solved)", res.Error)
}

func TestOptimizeConcurrentCallsAreIndependent(t *testing.T) {
	e := newTestEngine(t, nil, WithWorkers(2))
	tonnages := []float64{10000, 20000, 30000, 40000}
	results := make([]model.Result, len(tonnages))
	done := make(chan int)
	for i, tons := range tonnages {
		go func() {
			results[i] = e.Optimize(context.Background(), map[string]any{"numDays": 2, "dailyTonnage": tons})
			done <- i
		}()
	}
	for range tonnages {
		<-done
	}
	for i, res := range results {
		requireOptimal(t, res)
		assert.InDelta(t, tonnages[i], res.DailyTonnage[0].Tonnage, 1e-4)
	}
}
