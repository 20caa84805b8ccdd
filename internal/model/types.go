package model

// Wire types shared by the engine and the HTTP layer.

const (
    StatusOptimal = "Optimal"
    StatusError   = "Error"
)

type UtilizationEntry struct {
    Period            string  `json:"period"`
    RealUtilization   float64 `json:"realUtilization"`
    TargetUtilization float64 `json:"targetUtilization"`
    Deviation         float64 `json:"deviation"`
}

type TonnageEntry struct {
    Period  string  `json:"period"`
    Tonnage float64 `json:"tonnage"`
}

// Result is returned by every optimization call. On failure Status holds
// the solver label (or "Error") and Error is set; numeric fields are null.
type Result struct {
    Status             string                        `json:"status"`
    ObjectiveValue     *float64                      `json:"objectiveValue"`
    UtilizationSummary []UtilizationEntry            `json:"utilizationSummary,omitempty"`
    DailyTonnage       []TonnageEntry                `json:"dailyTonnage,omitempty"`
    RouteAllocations   map[string]map[string]float64 `json:"routeAllocations,omitempty"`
    AvgUtilization     *float64                      `json:"avgUtilization"`
    Error              string                        `json:"error,omitempty"`
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool { return r.Error != "" }

// RunEvent is broadcast after every optimization call. It is not stored.
type RunEvent struct {
    RunID          string   `json:"runId"`
    Status         string   `json:"status"`
    ObjectiveValue *float64 `json:"objectiveValue,omitempty"`
    AvgUtilization *float64 `json:"avgUtilization,omitempty"`
    NumDays        int      `json:"numDays,omitempty"`
    ElapsedMs      int64    `json:"elapsedMs"`
    Error          string   `json:"error,omitempty"`
    At             string   `json:"at"`
}

// RouteInfo is a catalog route with its derived figures.
type RouteInfo struct {
    Key            string  `json:"key"`
    Solid          string  `json:"solid"`
    Destination    string  `json:"destination"`
    CycleMinutes   float64 `json:"cycleMinutes"`
    EffectiveYield float64 `json:"effectiveYield"`
    AvailableTons  float64 `json:"availableTons"`
    DailyCapacity  float64 `json:"dailyCapacity"`
    Degenerate     bool    `json:"degenerate,omitempty"`
}
