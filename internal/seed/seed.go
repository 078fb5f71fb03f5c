package seed

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

const (
	hqCompanyName = "Aquaria"
	hqAddress     = "600 Congress Ave, Austin, TX 78701"

	demoPartnerCode    = "texaswater"
	demoPartnerCompany = "Texas Water Solutions"
)

// Config contains the values required by startup seed.
type Config struct {
	Dialect db.Dialect
	// DemoPartner adds a sample partner with its own delivery pricing.
	DemoPartner bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type partnerRow struct {
	code        string
	company     string
	contactName string
	email       string
	address     string
	logoURL     string
	color       string
	overrides   *rates.Override
}

// Run executes the startup seed in an idempotent way.
func Run(conn *sql.DB, cfg Config) (Stats, error) {
	tx, err := conn.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	now := db.FormatTime(time.Now())

	rows := []partnerRow{{code: quote.HQPartnerCode, company: hqCompanyName, address: hqAddress}}
	if cfg.DemoPartner {
		rows = append(rows, demoPartner())
	}

	for _, row := range rows {
		if err := ensurePartner(tx, cfg.Dialect, row, now, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func demoPartner() partnerRow {
	return partnerRow{
		code:        demoPartnerCode,
		company:     demoPartnerCompany,
		contactName: "Dana Reyes",
		email:       "quotes@texaswater.example",
		address:     "2100 Kramer Ln, Austin, TX 78758",
		color:       "#0B6E99",
		overrides: &rates.Override{
			CityDeliveryFees: rates.Prices{
				"Austin":      decimal.RequireFromString("750"),
				"Dallas":      decimal.RequireFromString("500"),
				"Houston":     decimal.RequireFromString("150"),
				"San Antonio": decimal.RequireFromString("600"),
			},
		},
	}
}

func ensurePartner(tx *sql.Tx, d db.Dialect, row partnerRow, now string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(d.Rebind(`SELECT EXISTS(SELECT 1 FROM partners WHERE code = ?)`), row.code).Scan(&exists); err != nil {
		return fmt.Errorf("check partner %s existence: %w", row.code, err)
	}
	if exists {
		return nil
	}

	var overrides any
	if row.overrides != nil {
		if err := rates.Apply(rates.Default(), row.overrides).Validate(); err != nil {
			return fmt.Errorf("validate pricing overrides for %s: %w", row.code, err)
		}
		raw, err := json.Marshal(row.overrides)
		if err != nil {
			return fmt.Errorf("encode pricing overrides for %s: %w", row.code, err)
		}
		overrides = string(raw)
	}

	if _, err := tx.Exec(d.Rebind(`
		INSERT INTO partners (
			id, code, company_name, contact_name, email, phone, display_address, logo_url, primary_color,
			pricing_overrides, is_active, can_create_quotes, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), uuid.NewString(), row.code, row.company, row.contactName, row.email, "", row.address, row.logoURL, row.color,
		overrides, true, true, now, now); err != nil {
		return fmt.Errorf("insert partner %s: %w", row.code, err)
	}
	stats.Inserts++
	return nil
}
