//go:build postgres_integration

package catalog

import (
	"context"
	"os"
	"testing"
)

func TestPostgresLoadSeededCatalog(t *testing.T) {
	dsn := os.Getenv("CATALOG_DATABASE_URL")
	if dsn == "" {
		t.Skip("CATALOG_DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer p.Close()
	ctx := context.Background()
	if err := p.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.MigrateDir("../../db/migrations"); err != nil {
		t.Fatalf("MigrateDir: %v", err)
	}
	c, err := p.Load(ctx, "copiapo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want, _ := Default()
	if len(c.Routes) != len(want.Routes) {
		t.Fatalf("routes: got %d, want %d", len(c.Routes), len(want.Routes))
	}
	for i := range want.Routes {
		if c.Routes[i] != want.Routes[i] {
			t.Fatalf("route %d: got %+v, want %+v", i, c.Routes[i], want.Routes[i])
		}
	}
}
