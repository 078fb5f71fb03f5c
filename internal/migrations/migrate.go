package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/stgrky/d2d-sales-calculator/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

// Up runs all pending embedded SQL migrations for dialect d.
func Up(conn *sql.DB, d db.Dialect) error {
	dialect, dir := "sqlite3", "sql/sqlite"
	if d == db.Postgres {
		dialect, dir = "postgres", "sql/postgres"
	}

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(conn, dir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}
