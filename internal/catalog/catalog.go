// Package catalog holds the static haulage route table: solids,
// destinations with their truck payloads, and per-route cycle times and
// available tonnage. A Catalog is loaded and validated once at process start
// and is read-only afterwards, so it can be shared by concurrent runs.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// Destination is a dump point; TruckPayloadTons is moved per truck cycle.
type Destination struct {
	ID               string  `yaml:"id" json:"id"`
	TruckPayloadTons float64 `yaml:"truckPayloadTons" json:"truckPayloadTons"`
}

// Route is a (solid, destination) pair with its cycle time and the tonnage
// available on it for the whole planning horizon.
type Route struct {
	Solid         string  `yaml:"solid" json:"solid"`
	Destination   string  `yaml:"destination" json:"destination"`
	CycleMinutes  float64 `yaml:"cycleMinutes" json:"cycleMinutes"`
	AvailableTons float64 `yaml:"availableTons" json:"availableTons"`
}

// Key is the "solid-destination" label used in allocation maps.
func (r Route) Key() string { return r.Solid + "-" + r.Destination }

// CycleHours is the cycle time converted to hours.
func (r Route) CycleHours() float64 { return r.CycleMinutes / 60.0 }

type Catalog struct {
	Name         string        `yaml:"name" json:"name"`
	Solids       []string      `yaml:"solids" json:"solids"`
	Destinations []Destination `yaml:"destinations" json:"destinations"`
	Routes       []Route       `yaml:"routes" json:"routes"`
}

// ValidationError lists every problem found in a catalog.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidCatalog, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidCatalog }

// Validate checks referential integrity and value ranges.
func (c *Catalog) Validate() error {
	var probs []string
	add := func(format string, args ...any) { probs = append(probs, fmt.Sprintf(format, args...)) }

	if len(c.Solids) == 0 {
		add("no solids")
	}
	if len(c.Destinations) == 0 {
		add("no destinations")
	}
	if len(c.Routes) == 0 {
		add("no routes")
	}
	solids := map[string]bool{}
	for _, s := range c.Solids {
		if strings.TrimSpace(s) == "" {
			add("empty solid id")
			continue
		}
		if solids[s] {
			add("duplicate solid %s", s)
		}
		solids[s] = true
	}
	dests := map[string]bool{}
	for _, d := range c.Destinations {
		if strings.TrimSpace(d.ID) == "" {
			add("empty destination id")
			continue
		}
		if dests[d.ID] {
			add("duplicate destination %s", d.ID)
		}
		if d.TruckPayloadTons < 0 {
			add("destination %s has negative truck payload %g", d.ID, d.TruckPayloadTons)
		}
		dests[d.ID] = true
	}
	seen := map[string]bool{}
	for _, r := range c.Routes {
		k := r.Key()
		if !solids[r.Solid] {
			add("route %s references unknown solid %s", k, r.Solid)
		}
		if !dests[r.Destination] {
			add("route %s references unknown destination %s", k, r.Destination)
		}
		if seen[k] {
			add("duplicate route %s", k)
		}
		seen[k] = true
		if r.CycleMinutes < 0 {
			add("route %s has negative cycle time %g", k, r.CycleMinutes)
		}
		if r.AvailableTons < 0 {
			add("route %s has negative available tonnage %g", k, r.AvailableTons)
		}
	}
	if len(probs) > 0 {
		return &ValidationError{Problems: probs}
	}
	return nil
}

// Payload returns the truck payload of a destination, 0 if unknown.
func (c *Catalog) Payload(dest string) float64 {
	for _, d := range c.Destinations {
		if d.ID == dest {
			return d.TruckPayloadTons
		}
	}
	return 0
}

// EffectiveYield is tons moved per truck-hour on r. Routes with zero cycle
// time are degenerate and yield 0.
func (c *Catalog) EffectiveYield(r Route) float64 {
	h := r.CycleHours()
	if h <= 0 {
		return 0
	}
	return c.Payload(r.Destination) / h
}

// DailyCapacity spreads r's available tonnage evenly over numDays.
func (c *Catalog) DailyCapacity(r Route, numDays int) float64 {
	if numDays <= 0 {
		return 0
	}
	return r.AvailableTons / float64(numDays)
}

// DegenerateRoutes returns routes whose effective yield is 0.
func (c *Catalog) DegenerateRoutes() []Route {
	var out []Route
	for _, r := range c.Routes {
		if c.EffectiveYield(r) == 0 {
			out = append(out, r)
		}
	}
	return out
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) { return Parse(defaultYAML) }
