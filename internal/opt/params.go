package opt

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parameter defaults applied when a key is absent from the request.
const (
	DefaultNumDays           = 31
	DefaultNumTrucks         = 8
	DefaultHoursPerDay       = 24
	DefaultAvailability      = 0.75
	DefaultTargetUtilization = 0.72
	DefaultDailyTonnage      = 70000.0

	// MaxNumDays bounds the horizon to one leap year of daily periods.
	MaxNumDays = 366
)

var errWrongType = errors.New("wrong type")

// ParameterError reports a request parameter that could not be coerced.
type ParameterError struct {
	Field string
	Err   error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %v", e.Field, e.Err)
}

func (e *ParameterError) Unwrap() error { return e.Err }

// Period is one planning day.
type Period struct {
	Label             string
	Availability      float64
	TargetUtilization float64
	TargetTonnage     float64
}

// Plan is the normalized request: every day 1..NumDays has a Period.
type Plan struct {
	NumDays     int
	NumTrucks   int
	HoursPerDay int
	Periods     []Period
}

// AvailableHours is the machine-hours the fleet offers during per.
func (pl *Plan) AvailableHours(per Period) float64 {
	return float64(pl.HoursPerDay) * per.Availability * float64(pl.NumTrucks)
}

// Normalize coerces raw request parameters into a Plan. Missing keys take
// their defaults; days absent from fleetAvailability get DefaultAvailability
// and keys outside 1..numDays are ignored.
func Normalize(params map[string]any) (*Plan, error) {
	numDays, err := intParam(params, "numDays", DefaultNumDays)
	if err != nil {
		return nil, err
	}
	if numDays <= 0 || numDays > MaxNumDays {
		return nil, &ParameterError{Field: "numDays", Err: fmt.Errorf("must be between 1 and %d, got %d", MaxNumDays, numDays)}
	}
	numTrucks, err := intParam(params, "numTrucks", DefaultNumTrucks)
	if err != nil {
		return nil, err
	}
	hours, err := intParam(params, "hoursPerDay", DefaultHoursPerDay)
	if err != nil {
		return nil, err
	}
	target, err := floatParam(params, "targetUtilization", DefaultTargetUtilization)
	if err != nil {
		return nil, err
	}
	tonnage, err := floatParam(params, "dailyTonnage", DefaultDailyTonnage)
	if err != nil {
		return nil, err
	}
	avail, err := availabilityParam(params)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		NumDays:     numDays,
		NumTrucks:   numTrucks,
		HoursPerDay: hours,
		Periods:     make([]Period, numDays),
	}
	for i := range plan.Periods {
		label := strconv.Itoa(i + 1)
		a, ok := avail[label]
		if !ok {
			a = DefaultAvailability
		}
		plan.Periods[i] = Period{
			Label:             label,
			Availability:      a,
			TargetUtilization: target,
			TargetTonnage:     tonnage,
		}
	}
	return plan, nil
}

func intParam(params map[string]any, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, &ParameterError{Field: key, Err: err}
	}
	return n, nil
}

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, &ParameterError{Field: key, Err: err}
	}
	return f, nil
}

func availabilityParam(params map[string]any) (map[string]float64, error) {
	v, ok := params["fleetAvailability"]
	if !ok {
		return nil, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, &ParameterError{Field: "fleetAvailability", Err: fmt.Errorf("%w: expected object, got %s", errWrongType, typeName(v))}
	}
	out := make(map[string]float64, len(raw))
	for day, dv := range raw {
		f, err := toFloat(dv)
		if err != nil {
			return nil, &ParameterError{Field: "fleetAvailability." + day, Err: err}
		}
		out[day] = f
	}
	return out, nil
}

// toInt truncates numbers toward zero and parses integer strings.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if err := checkFinite(x); err != nil {
			return 0, err
		}
		if x <= float64(math.MinInt) || x >= float64(math.MaxInt) {
			return 0, fmt.Errorf("out of integer range: %v", x)
		}
		return int(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return toInt(f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: expected integer, got %s", errWrongType, typeName(v))
}

// toFloat accepts finite numbers and numeric strings; NaN and ±Inf are
// rejected however they are spelled.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, checkFinite(x)
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x.String())
		}
		return f, checkFinite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, checkFinite(f)
	}
	return 0, fmt.Errorf("%w: expected number, got %s", errWrongType, typeName(v))
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a finite number: %v", f)
	}
	return nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	}
	return fmt.Sprintf("%T", v)
}

// SampleParameters returns a complete request using the defaults and a
// measured 31-day availability profile.
func SampleParameters() map[string]any {
	profile := []float64{
		0.58, 0.75, 0.60, 0.77, 0.85, 0.78, 0.64, 0.80, 0.68, 0.77, 0.66,
		0.88, 0.85, 0.85, 0.79, 0.88, 0.85, 0.77, 0.88, 0.65, 0.76, 0.77,
		0.87, 0.71, 0.75, 0.55, 0.87, 0.87, 0.86, 0.82, 0.77,
	}
	avail := make(map[string]any, len(profile))
	for i, a := range profile {
		avail[strconv.Itoa(i+1)] = a
	}
	return map[string]any{
		"numDays":           DefaultNumDays,
		"numTrucks":         DefaultNumTrucks,
		"hoursPerDay":       DefaultHoursPerDay,
		"fleetAvailability": avail,
		"targetUtilization": DefaultTargetUtilization,
		"dailyTonnage":      DefaultDailyTonnage,
	}
}
