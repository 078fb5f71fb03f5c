package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/archive"
	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/discount"
)

const (
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultArchiveRegion = "us-east-1"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port           string
	DBDriver       db.Dialect
	DBPath         string
	DatabaseURL    string
	MigrateOnStart bool
	SeedDemo       bool

	Discount discount.Campaign

	ArchiveBucket          string
	ArchiveRegion          string
	ArchiveEndpoint        string
	ArchivePathStyle       bool
	ArchiveAccessKeyID     string
	ArchiveSecretAccessKey string

	AdminToken string
}

// DSN returns the data source for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == db.Postgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Archive returns the document archive settings.
func (c Config) Archive() archive.Config {
	return archive.Config{
		Bucket:          c.ArchiveBucket,
		Region:          c.ArchiveRegion,
		Endpoint:        c.ArchiveEndpoint,
		PathStyle:       c.ArchivePathStyle,
		AccessKeyID:     c.ArchiveAccessKeyID,
		SecretAccessKey: c.ArchiveSecretAccessKey,
	}
}

// Load reads environment variables and returns a populated Config. Invalid
// values fall back to their defaults with a warning.
func Load() Config {
	// Missing .env is fine; deployments inject real environment variables.
	if _, err := loadDotEnv(".env"); err != nil {
		log.Printf("warning: read .env: %v", err)
	}

	cfg := Config{
		Port:                   stringEnv("PORT", defaultPort),
		DBPath:                 stringEnv("DB_PATH", defaultDBPath),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		MigrateOnStart:         boolEnv("MIGRATE_ON_START", true),
		SeedDemo:               boolEnv("SEED_DEMO_PARTNER", false),
		ArchiveBucket:          os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveRegion:          stringEnv("ARCHIVE_S3_REGION", defaultArchiveRegion),
		ArchiveEndpoint:        os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchivePathStyle:       boolEnv("ARCHIVE_S3_PATH_STYLE", false),
		ArchiveAccessKeyID:     os.Getenv("ARCHIVE_S3_ACCESS_KEY_ID"),
		ArchiveSecretAccessKey: os.Getenv("ARCHIVE_S3_SECRET_ACCESS_KEY"),
		AdminToken:             os.Getenv("ADMIN_TOKEN"),
		Discount: discount.Campaign{
			Enabled: boolEnv("DISCOUNT_ENABLED", false),
			Label:   stringEnv("DISCOUNT_LABEL", discount.DefaultLabel),
			Rate:    rateEnv("DISCOUNT_RATE", discount.DefaultRate),
		},
	}

	driver, err := db.ParseDialect(stringEnv("DB_DRIVER", string(db.SQLite)))
	if err != nil {
		log.Printf("warning: %v, using sqlite", err)
		driver = db.SQLite
	}
	cfg.DBDriver = driver

	if cfg.DBDriver == db.Postgres && cfg.DatabaseURL == "" {
		log.Print("warning: DB_DRIVER=postgres but DATABASE_URL is not set")
	}
	if (cfg.ArchiveAccessKeyID == "") != (cfg.ArchiveSecretAccessKey == "") {
		log.Print("warning: ARCHIVE_S3_ACCESS_KEY_ID and ARCHIVE_S3_SECRET_ACCESS_KEY must be set together, using the default credentials chain")
		cfg.ArchiveAccessKeyID, cfg.ArchiveSecretAccessKey = "", ""
	}
	if cfg.AdminToken == "" {
		log.Print("warning: ADMIN_TOKEN is not set, admin routes are open")
	}

	return cfg
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("warning: %s=%q is not a boolean, using %t", key, raw, def)
		return def
	}
	return v
}

// rateEnv reads a fraction in [0, 1].
func rateEnv(key string, def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
		log.Printf("warning: %s=%q is not a rate between 0 and 1, using %s", key, raw, def)
		return def
	}
	return v
}
