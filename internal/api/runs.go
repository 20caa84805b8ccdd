package api

import (
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "time"

    "github.com/gorilla/websocket"

    "haulopt/internal/metrics"
    "haulopt/internal/model"
    "haulopt/internal/opt"
)

const (
    runsTopic        = "runs"
    runCompletedType = "run.completed"
    heartbeatEvery   = 15 * time.Second
    wsPingEvery      = 20 * time.Second
    wsReadTimeout    = 60 * time.Second
)

// publishRun announces a finished optimization. Events are not stored; a
// broker failure only costs the notification.
func (s *Server) publishRun(runID string, res model.Result, stats opt.RunStats) {
    evt := model.RunEvent{
        RunID:          runID,
        Status:         res.Status,
        ObjectiveValue: res.ObjectiveValue,
        AvgUtilization: res.AvgUtilization,
        NumDays:        stats.NumDays,
        ElapsedMs:      stats.Elapsed.Milliseconds(),
        Error:          res.Error,
        At:             time.Now().UTC().Format(time.RFC3339),
    }
    if err := s.Broker.Publish(runsTopic, Event{Type: runCompletedType, Data: evt}); err != nil {
        metrics.RunEvents.WithLabelValues("failed").Inc()
        log.Printf("warning: publish run %s: %v", runID, err)
        return
    }
    metrics.RunEvents.WithLabelValues("published").Inc()
}

// RunsStreamHandler streams run events as server-sent events (GET /v1/runs/stream).
func (s *Server) RunsStreamHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    ch, err := s.Broker.Subscribe(runsTopic)
    if err != nil { writeProblem(w, 503, "Event stream unavailable", err.Error(), r.URL.Path); return }
    defer s.Broker.Unsubscribe(runsTopic, ch)

    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    heartbeat := func() {
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"ts\":\"%s\"}\n\n", time.Now().UTC().Format(time.RFC3339))
        flusher.Flush()
    }
    heartbeat()

    ticker := time.NewTicker(heartbeatEvery)
    defer ticker.Stop()
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-ticker.C:
            heartbeat()
        }
    }
}

// RunsWSHandler streams run events over a websocket (GET /v1/runs/ws). Every
// event is sent as a JSON text frame {"type": ..., "data": ...}. Client
// frames are read only to track liveness.
func (s *Server) RunsWSHandler(w http.ResponseWriter, r *http.Request) {
    upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
        return originAllowed(s.Cfg.AllowOrigins, r.Header.Get("Origin"))
    }}
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    ch, err := s.Broker.Subscribe(runsTopic)
    if err != nil {
        _ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "event stream unavailable"))
        return
    }
    defer s.Broker.Unsubscribe(runsTopic, ch)

    conn.SetReadLimit(1 << 16)
    _ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
    conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); return nil })

    closed := make(chan struct{})
    go func() {
        defer close(closed)
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                return
            }
        }
    }()

    ticker := time.NewTicker(wsPingEvery)
    defer ticker.Stop()
    for {
        select {
        case <-closed:
            return
        case evt, ok := <-ch:
            if !ok { return }
            _ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
            if err := conn.WriteJSON(evt); err != nil {
                return
            }
        case <-ticker.C:
            if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
                return
            }
        }
    }
}
