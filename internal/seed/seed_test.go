package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, db.SQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{Dialect: db.SQLite, DemoPartner: true}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 2 {
				t.Fatalf("expected 2 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM partners WHERE code = ?`, "AQUARIA_HQ", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM partners WHERE code = ? AND pricing_overrides IS NOT NULL`, "texaswater", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM partners`, nil, 2)
}

func TestRunWithoutDemoPartner(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "seed-hq.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, db.SQLite); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := Run(database, Config{Dialect: db.SQLite}); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	assertCount(t, database, `SELECT COUNT(*) FROM partners`, nil, 1)
	assertCount(t, database, `SELECT COUNT(*) FROM partners WHERE code = ? AND pricing_overrides IS NULL`, "AQUARIA_HQ", 1)
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
