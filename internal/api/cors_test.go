package api

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
    ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

    t.Run("wildcard", func(t *testing.T) {
        h := CORS([]string{"*"}, ok)
        req := httptest.NewRequest(http.MethodPost, "/optimize", nil)
        req.Header.Set("Origin", "http://localhost:3000")
        rr := httptest.NewRecorder()
        h.ServeHTTP(rr, req)
        assert.Equal(t, http.StatusTeapot, rr.Code)
        assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
        assert.Contains(t, rr.Header().Get("Access-Control-Expose-Headers"), "X-Run-Id")
    })

    t.Run("preflight", func(t *testing.T) {
        h := CORS([]string{"https://ops.example"}, ok)
        req := httptest.NewRequest(http.MethodOptions, "/optimize", nil)
        req.Header.Set("Origin", "https://ops.example")
        req.Header.Set("Access-Control-Request-Method", "POST")
        rr := httptest.NewRecorder()
        h.ServeHTTP(rr, req)
        assert.Equal(t, http.StatusNoContent, rr.Code)
        assert.Equal(t, "https://ops.example", rr.Header().Get("Access-Control-Allow-Origin"))
        assert.Equal(t, "Origin", rr.Header().Get("Vary"))
        assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
    })

    t.Run("foreign origin", func(t *testing.T) {
        h := CORS([]string{"https://ops.example"}, ok)
        req := httptest.NewRequest(http.MethodPost, "/optimize", nil)
        req.Header.Set("Origin", "https://evil.example")
        rr := httptest.NewRecorder()
        h.ServeHTTP(rr, req)
        assert.Equal(t, http.StatusTeapot, rr.Code)
        assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
    })
}
