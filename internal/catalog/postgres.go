package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres loads a catalog from the haul_* tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in lexical order. Files are
// expected to be idempotent (CREATE ... IF NOT EXISTS, ON CONFLICT DO NOTHING).
func (p *Postgres) MigrateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// Load reads and validates the catalog, labelling it name. Rows are ordered by position then id
// so the LP column order is stable across restarts.
func (p *Postgres) Load(ctx context.Context, name string) (*Catalog, error) {
	c := &Catalog{Name: name}

	rows, err := p.db.QueryContext(ctx, `SELECT id FROM haul_solids ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load solids: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		c.Solids = append(c.Solids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.db.QueryContext(ctx, `SELECT id, truck_payload_tons FROM haul_destinations ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load destinations: %w", err)
	}
	for rows.Next() {
		var d Destination
		if err := rows.Scan(&d.ID, &d.TruckPayloadTons); err != nil {
			rows.Close()
			return nil, err
		}
		c.Destinations = append(c.Destinations, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = p.db.QueryContext(ctx, `SELECT solid, destination, cycle_minutes, COALESCE(available_tons, 0) FROM haul_routes ORDER BY position, solid, destination`)
	if err != nil {
		return nil, fmt.Errorf("load routes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.Solid, &r.Destination, &r.CycleMinutes, &r.AvailableTons); err != nil {
			return nil, err
		}
		c.Routes = append(c.Routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
