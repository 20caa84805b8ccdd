package api

import (
    "bytes"
    "encoding/json"
    "math"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "haulopt/internal/catalog"
    "haulopt/internal/config"
    "haulopt/internal/model"
)

func newTestServer(t *testing.T) *Server {
    t.Helper()
    s, err := NewServer(config.Default())
    require.NoError(t, err)
    t.Cleanup(func() { _ = s.Close() })
    return s
}

func postOptimize(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, model.Result) {
    t.Helper()
    rr := httptest.NewRecorder()
    req := httptest.NewRequest(http.MethodPost, "/v1/optimize", strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    s.OptimizeHandler(rr, req)
    var res model.Result
    if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
        require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
    }
    return rr, res
}

func TestHealthReady(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    assert.Equal(t, 200, rr.Code)

    rr = httptest.NewRecorder()
    s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
    assert.Equal(t, 200, rr.Code)
    assert.Contains(t, rr.Body.String(), `"status":"ready"`)
}

func TestOptimizeOptimal(t *testing.T) {
    s := newTestServer(t)
    rr, res := postOptimize(t, s, `{"numDays":2,"numTrucks":8,"hoursPerDay":24,"fleetAvailability":{"1":0.75,"2":0.75},"targetUtilization":0.72,"dailyTonnage":10000}`)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    _, err := uuid.Parse(rr.Header().Get("X-Run-Id"))
    assert.NoError(t, err)

    assert.Equal(t, "Optimal", res.Status)
    require.NotNil(t, res.ObjectiveValue)
    require.NotNil(t, res.AvgUtilization)
    require.Len(t, res.UtilizationSummary, 2)
    require.Len(t, res.DailyTonnage, 2)
    assert.Equal(t, "1", res.DailyTonnage[0].Period)
    assert.InDelta(t, 10000, res.DailyTonnage[1].Tonnage, 1e-6)
    assert.Len(t, res.RouteAllocations["2"], 18)

    var raw map[string]any
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
    assert.NotContains(t, raw, "error")
}

func TestOptimizeMalformedBody(t *testing.T) {
    s := newTestServer(t)
    for name, body := range map[string]string{
        "syntax":   `{"numDays":`,
        "array":    `[1,2]`,
        "empty":    ``,
        "trailing": `{} {}`,
    } {
        t.Run(name, func(t *testing.T) {
            rr, _ := postOptimize(t, s, body)
            assert.Equal(t, http.StatusBadRequest, rr.Code)
            assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
            var p Problem
            require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
            assert.Equal(t, "Invalid JSON", p.Title)
            assert.Equal(t, 400, p.Status)
        })
    }
}

func TestOptimizeParameterError(t *testing.T) {
    s := newTestServer(t)
    rr, res := postOptimize(t, s, `{"numDays":"many"}`)
    assert.Equal(t, http.StatusBadRequest, rr.Code)
    assert.Equal(t, "Error", res.Status)
    assert.Contains(t, res.Error, "numDays")
    assert.Nil(t, res.ObjectiveValue)
}

func TestOptimizeNonFiniteParameters(t *testing.T) {
    s := newTestServer(t)
    for _, body := range []string{
        `{"numDays":2,"dailyTonnage":"Inf"}`,
        `{"numDays":2,"targetUtilization":"NaN"}`,
        `{"numDays":2,"fleetAvailability":{"1":"-Inf"}}`,
    } {
        rr, res := postOptimize(t, s, body)
        assert.Equal(t, http.StatusBadRequest, rr.Code, body)
        assert.NotZero(t, rr.Body.Len())
        assert.Equal(t, "Error", res.Status)
        assert.Contains(t, res.Error, "not a finite number")
    }
}

func TestWriteJSONUnencodableValue(t *testing.T) {
    rr := httptest.NewRecorder()
    writeJSON(rr, http.StatusOK, map[string]float64{"x": math.NaN()})
    assert.Equal(t, http.StatusInternalServerError, rr.Code)
    assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
    var p Problem
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
    assert.Equal(t, 500, p.Status)
}

func TestOptimizeInfeasible(t *testing.T) {
    s := newTestServer(t)
    rr, res := postOptimize(t, s, `{"numDays":2,"dailyTonnage":10000000}`)
    assert.Equal(t, http.StatusInternalServerError, rr.Code)
    assert.Equal(t, "Infeasible", res.Status)
    assert.Equal(t, "no optimal or feasible solution found (status: Infeasible)", res.Error)
    assert.Empty(t, res.UtilizationSummary)
}

func TestOptimizeMethodNotAllowed(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.OptimizeHandler(rr, httptest.NewRequest(http.MethodGet, "/optimize", nil))
    assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestOptimizeRateLimited(t *testing.T) {
    cfg := config.Default()
    cfg.RateRPS = 0.001
    cfg.RateBurst = 1
    cat, err := catalog.Default()
    require.NoError(t, err)
    s := NewServerWithCatalog(cfg, cat)

    rr, _ := postOptimize(t, s, `{"numDays":1,"dailyTonnage":1000}`)
    assert.Equal(t, http.StatusOK, rr.Code)
    rr, _ = postOptimize(t, s, `{"numDays":1,"dailyTonnage":1000}`)
    assert.Equal(t, http.StatusTooManyRequests, rr.Code)
    assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestOptimizePublishesRunEvent(t *testing.T) {
    s := newTestServer(t)
    ch, err := s.Broker.Subscribe(runsTopic)
    require.NoError(t, err)
    defer s.Broker.Unsubscribe(runsTopic, ch)

    rr, _ := postOptimize(t, s, `{"numDays":2,"dailyTonnage":10000}`)
    require.Equal(t, http.StatusOK, rr.Code)

    evt := <-ch
    assert.Equal(t, runCompletedType, evt.Type)
    run, ok := evt.Data.(model.RunEvent)
    require.True(t, ok)
    assert.Equal(t, rr.Header().Get("X-Run-Id"), run.RunID)
    assert.Equal(t, "Optimal", run.Status)
    assert.Equal(t, 2, run.NumDays)
    require.NotNil(t, run.ObjectiveValue)
}

func TestDefaults(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.DefaultsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/optimize/defaults", nil))
    require.Equal(t, 200, rr.Code)

    var body struct {
        Defaults map[string]any `json:"defaults"`
    }
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
    assert.EqualValues(t, 31, body.Defaults["numDays"])
    assert.EqualValues(t, 70000, body.Defaults["dailyTonnage"])
    avail := body.Defaults["fleetAvailability"].(map[string]any)
    assert.Len(t, avail, 31)
    assert.EqualValues(t, 0.58, avail["1"])

    // the defaults are a valid request on their own
    b, _ := json.Marshal(body.Defaults)
    rr2, res := postOptimize(t, s, string(b))
    assert.Equal(t, 200, rr2.Code, res.Error)
}

func TestCatalog(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.CatalogHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/catalog?numDays=2", nil))
    require.Equal(t, 200, rr.Code)

    var body struct {
        Name    string            `json:"name"`
        NumDays int               `json:"numDays"`
        Routes  []model.RouteInfo `json:"routes"`
    }
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
    assert.Equal(t, "copiapo", body.Name)
    assert.Equal(t, 2, body.NumDays)
    require.Len(t, body.Routes, 18)
    first := body.Routes[0]
    assert.Equal(t, "Acopios_Mineral_2-Planta", first.Key)
    assert.InDelta(t, 3000, first.DailyCapacity, 1e-9)
    assert.InDelta(t, 224/0.195, first.EffectiveYield, 1e-9)
    assert.False(t, first.Degenerate)

    rr = httptest.NewRecorder()
    s.CatalogHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/catalog?numDays=0", nil))
    assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOpenAPI(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.OpenAPIHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
    require.Equal(t, 200, rr.Code)
    assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
    assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("openapi: 3.0.3")))

    rr = httptest.NewRecorder()
    s.OpenAPIHandler(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml?format=json", nil))
    require.Equal(t, 200, rr.Code)
    var doc map[string]any
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
    assert.Contains(t, doc["paths"], "/v1/optimize")
}

func TestDebugInfo(t *testing.T) {
    s := newTestServer(t)
    rr := httptest.NewRecorder()
    s.DebugJSON(rr, httptest.NewRequest(http.MethodGet, "/debug/info", nil))
    require.Equal(t, 200, rr.Code)
    var info map[string]any
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
    assert.Contains(t, info, "build")
    cfg := info["config"].(map[string]any)
    assert.Equal(t, false, cfg["REDIS_BROKER"])
}

func TestNewServerFromCatalogFile(t *testing.T) {
    cfg := config.Default()
    cfg.CatalogPath = t.TempDir() + "/missing.yaml"
    _, err := NewServer(cfg)
    assert.Error(t, err)
}
