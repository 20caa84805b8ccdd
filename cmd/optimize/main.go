// Command optimize runs one allocation against a catalog and prints a
// summary. Parameters default to the measured 31-day sample; -params reads a
// JSON request body from a file instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"haulopt/internal/catalog"
	"haulopt/internal/lp"
	"haulopt/internal/opt"
)

func main() {
	catalogPath := flag.String("catalog", "", "YAML route catalog (default: embedded)")
	paramsPath := flag.String("params", "", "JSON request body (default: sample parameters)")
	timeLimit := flag.Duration("time-limit", lp.DefaultTimeLimit, "solver wall-clock budget")
	full := flag.Bool("json", false, "print the full result as JSON")
	flag.Parse()

	cat, err := loadCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}
	params := opt.SampleParameters()
	if *paramsPath != "" {
		b, err := os.ReadFile(*paramsPath)
		if err != nil {
			log.Fatalf("params: %v", err)
		}
		params = map[string]any{}
		if err := json.Unmarshal(b, &params); err != nil {
			log.Fatalf("params: %v", err)
		}
	}

	eng := opt.NewEngine(cat, opt.WithTimeLimit(*timeLimit), opt.WithLogger(log.New(os.Stderr, "", log.LstdFlags)))
	res, stats := eng.Run(context.Background(), params)
	if *full {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
	}
	if res.Failed() {
		fmt.Fprintf(os.Stderr, "optimization failed: %s\n", res.Error)
		os.Exit(1)
	}
	if !*full {
		fmt.Printf("status:              %s\n", res.Status)
		fmt.Printf("objective (sum dev): %.4f\n", *res.ObjectiveValue)
		fmt.Printf("avg utilization:     %.2f%%\n", *res.AvgUtilization*100)
		fmt.Printf("model:               %d vars, %d rows, %d blocks, %s\n",
			stats.Variables, stats.Constraints, stats.Blocks, stats.Elapsed.Round(time.Millisecond))
	}
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}
