// Package main runs a demo WebSocket client for optimization run events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type runMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS first so the run below is observed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m runMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Data))
		}
	}()

	// Trigger a small run
	body := []byte(`{"numDays":2,"numTrucks":8,"hoursPerDay":24,"fleetAvailability":{"1":0.75,"2":0.75},"targetUtilization":0.72,"dailyTonnage":10000}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var res struct {
		Status         string   `json:"status"`
		ObjectiveValue *float64 `json:"objectiveValue"`
		Error          string   `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run %s: HTTP %d status=%s error=%q", resp.Header.Get("X-Run-Id"), resp.StatusCode, res.Status, res.Error)

	// Wait briefly to receive the event
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
