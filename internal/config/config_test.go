package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/archive"
	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/discount"
)

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	t.Setenv("A", "")
	t.Setenv("B", "")
	t.Setenv("C", "")
	t.Setenv("D", "")

	path := writeDotEnv(t, `
# comment

A=one
export B=two
C="three # not a comment"
D=four # trailing
not a pair
=missing key
`)

	n, err := loadDotEnv(path)
	if err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if n != 4 {
		t.Fatalf("set %d variables, want 4", n)
	}

	want := map[string]string{"A": "one", "B": "two", "C": "three # not a comment", "D": "four"}
	for k, v := range want {
		if got := os.Getenv(k); got != v {
			t.Fatalf("%s=%q, want %q", k, got, v)
		}
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("KEEP", "already")
	path := writeDotEnv(t, "KEEP=fromfile\n")

	if _, err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("KEEP"); got != "already" {
		t.Fatalf("KEEP=%q, want %q", got, "already")
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	n, err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil || n != 0 {
		t.Fatalf("loadDotEnv = %d, %v; want 0, nil", n, err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "MIGRATE_ON_START", "SEED_DEMO_PARTNER",
		"DISCOUNT_ENABLED", "DISCOUNT_LABEL", "DISCOUNT_RATE",
		"ARCHIVE_S3_BUCKET", "ARCHIVE_S3_REGION", "ARCHIVE_S3_ENDPOINT", "ARCHIVE_S3_PATH_STYLE",
		"ARCHIVE_S3_ACCESS_KEY_ID", "ARCHIVE_S3_SECRET_ACCESS_KEY",
		"ADMIN_TOKEN",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != "8080" || cfg.DBDriver != db.SQLite || cfg.DSN() != "./dev.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.MigrateOnStart || cfg.SeedDemo {
		t.Fatalf("migrate=%t seed=%t", cfg.MigrateOnStart, cfg.SeedDemo)
	}
	if cfg.Discount.Enabled || cfg.Discount.Label != discount.DefaultLabel || !cfg.Discount.Rate.Equal(discount.DefaultRate) {
		t.Fatalf("discount = %+v", cfg.Discount)
	}
	if cfg.ArchiveRegion != "us-east-1" || cfg.ArchiveBucket != "" {
		t.Fatalf("archive = %q %q", cfg.ArchiveBucket, cfg.ArchiveRegion)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/quotes")
	t.Setenv("DISCOUNT_ENABLED", "true")
	t.Setenv("DISCOUNT_RATE", "0.2")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("ARCHIVE_S3_PATH_STYLE", "1")

	cfg := Load()

	if cfg.DBDriver != db.Postgres || cfg.DSN() != "postgres://localhost/quotes" {
		t.Fatalf("driver=%s dsn=%s", cfg.DBDriver, cfg.DSN())
	}
	if !cfg.Discount.Enabled || !cfg.Discount.Rate.Equal(decimal.RequireFromString("0.2")) {
		t.Fatalf("discount = %+v", cfg.Discount)
	}
	if cfg.MigrateOnStart || !cfg.ArchivePathStyle {
		t.Fatalf("migrate=%t pathStyle=%t", cfg.MigrateOnStart, cfg.ArchivePathStyle)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "oracle")
	t.Setenv("DISCOUNT_RATE", "1.5")
	t.Setenv("MIGRATE_ON_START", "maybe")

	cfg := Load()

	if cfg.DBDriver != db.SQLite {
		t.Fatalf("driver = %s, want sqlite", cfg.DBDriver)
	}
	if !cfg.Discount.Rate.Equal(discount.DefaultRate) {
		t.Fatalf("rate = %s, want default", cfg.Discount.Rate)
	}
	if !cfg.MigrateOnStart {
		t.Fatalf("invalid bool should keep default true")
	}
}

func TestArchiveSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHIVE_S3_BUCKET", "quotes")
	t.Setenv("ARCHIVE_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("ARCHIVE_S3_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("ARCHIVE_S3_SECRET_ACCESS_KEY", "secret")

	got := Load().Archive()

	want := archive.Config{
		Bucket:          "quotes",
		Region:          "us-east-1",
		Endpoint:        "http://minio:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}
	if got != want {
		t.Fatalf("archive config = %+v, want %+v", got, want)
	}

	t.Setenv("ARCHIVE_S3_SECRET_ACCESS_KEY", "")
	if got := Load().Archive(); got.AccessKeyID != "" || got.SecretAccessKey != "" {
		t.Fatalf("half-set credentials should be dropped: %+v", got)
	}
}
