package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stgrky/d2d-sales-calculator/internal/db"
)

func TestUpCreatesTablesAndIsRepeatable(t *testing.T) {
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if err := Up(conn, db.SQLite); err != nil {
		t.Fatalf("first up: %v", err)
	}
	if err := Up(conn, db.SQLite); err != nil {
		t.Fatalf("second up: %v", err)
	}

	for _, table := range []string{"partners", "quotes"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
