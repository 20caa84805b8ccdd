package api

import (
    "net/http"
)

func originAllowed(allowed []string, origin string) bool {
    if origin == "" {
        return true
    }
    for _, o := range allowed {
        if o == "*" || o == origin {
            return true
        }
    }
    return false
}

// CORS answers preflight requests and sets Access-Control headers for
// origins listed in allowed ("*" admits any origin).
func CORS(allowed []string, next http.Handler) http.Handler {
    wildcard := false
    for _, o := range allowed {
        if o == "*" { wildcard = true }
    }
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        origin := r.Header.Get("Origin")
        if origin != "" && originAllowed(allowed, origin) {
            h := w.Header()
            if wildcard {
                h.Set("Access-Control-Allow-Origin", "*")
            } else {
                h.Set("Access-Control-Allow-Origin", origin)
                h.Add("Vary", "Origin")
            }
            h.Set("Access-Control-Expose-Headers", "X-Run-Id, Retry-After")
            if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
                h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
                h.Set("Access-Control-Allow-Headers", "Content-Type")
                h.Set("Access-Control-Max-Age", "600")
                w.WriteHeader(http.StatusNoContent)
                return
            }
        }
        next.ServeHTTP(w, r)
    })
}
