// Package partner reads the partner accounts that quote under their own brand and
// pricing.
package partner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

var (
	ErrNotFound        = errors.New("partner not found")
	ErrQuotingDisabled = errors.New("partner is not allowed to create quotes")
	ErrReservedCode    = errors.New("partner code is reserved")
)

// Partner is a dealer account. A nil PricingOverrides means the partner quotes
// with the default catalog.
type Partner struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	CompanyName      string          `json:"companyName"`
	ContactName      string          `json:"contactName,omitempty"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	DisplayAddress   string          `json:"displayAddress,omitempty"`
	LogoURL          string          `json:"logoUrl,omitempty"`
	PrimaryColor     string          `json:"primaryColor,omitempty"`
	PricingOverrides *rates.Override `json:"pricingOverrides,omitempty"`
	IsActive         bool            `json:"isActive"`
	CanCreateQuotes  bool            `json:"canCreateQuotes"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// IsHQ reports whether p is the company's own account.
func (p Partner) IsHQ() bool {
	return p.Code == quote.HQPartnerCode
}

// Rates returns the rate table p quotes with.
func (p Partner) Rates() rates.RateTable {
	return rates.Apply(rates.Default(), p.PricingOverrides)
}

// Directory looks partners up in the partners table.
type Directory struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewDirectory(conn *sql.DB, d db.Dialect) *Directory {
	return &Directory{db: conn, dialect: d}
}

const selectColumns = `
	SELECT id, code, company_name, contact_name, email, phone, display_address, logo_url, primary_color,
	       pricing_overrides, is_active, can_create_quotes, created_at, updated_at
	FROM partners`

// Lookup resolves the partner behind a partner quoting page. The HQ code is
// reserved for the main calculator, inactive partners are reported as not found,
// and partners without quoting rights yield ErrQuotingDisabled.
func (d *Directory) Lookup(ctx context.Context, code string) (Partner, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Partner{}, ErrNotFound
	}
	if strings.EqualFold(code, quote.HQPartnerCode) {
		return Partner{}, ErrReservedCode
	}

	p, err := d.ByCode(ctx, code)
	if err != nil {
		return Partner{}, err
	}
	if !p.IsActive {
		return Partner{}, ErrNotFound
	}
	if !p.CanCreateQuotes {
		return Partner{}, ErrQuotingDisabled
	}
	return p, nil
}

// HQ returns the company's own account.
func (d *Directory) HQ(ctx context.Context) (Partner, error) {
	return d.ByCode(ctx, quote.HQPartnerCode)
}

// List returns active partners ordered by company name.
func (d *Directory) List(ctx context.Context) ([]Partner, error) {
	q := selectColumns + ` WHERE is_active = ? ORDER BY company_name, code`
	rows, err := d.db.QueryContext(ctx, d.dialect.Rebind(q), true)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	out := []Partner{}
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partners: %w", err)
	}
	return out, nil
}

// ByCode returns the partner with the given code regardless of its flags.
func (d *Directory) ByCode(ctx context.Context, code string) (Partner, error) {
	row := d.db.QueryRowContext(ctx, d.dialect.Rebind(selectColumns+` WHERE code = ?`), code)
	return scanPartner(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPartner(s scanner) (Partner, error) {
	var (
		p                    Partner
		overrides            sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(
		&p.ID, &p.Code, &p.CompanyName, &p.ContactName, &p.Email, &p.Phone, &p.DisplayAddress, &p.LogoURL, &p.PrimaryColor,
		&overrides, &p.IsActive, &p.CanCreateQuotes, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Partner{}, ErrNotFound
	}
	if err != nil {
		return Partner{}, fmt.Errorf("scan partner: %w", err)
	}

	if overrides.Valid && strings.TrimSpace(overrides.String) != "" {
		var o rates.Override
		if err := json.Unmarshal([]byte(overrides.String), &o); err != nil {
			return Partner{}, fmt.Errorf("decode pricing overrides for %s: %w", p.Code, err)
		}
		p.PricingOverrides = &o
	}
	if p.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return Partner{}, err
	}
	if p.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return Partner{}, err
	}
	return p, nil
}
