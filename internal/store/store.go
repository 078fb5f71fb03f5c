// Package store persists quotes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/db"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
)

// ErrNotFound is returned when no quote matches the requested id or number.
var ErrNotFound = errors.New("quote not found")

// ListFilter narrows ListQuotes. An empty PartnerID lists every quote.
type ListFilter struct {
	PartnerID string
}

// Stats summarizes saved quotes.
type Stats struct {
	Quotes     int                  `json:"quotes"`
	TotalValue decimal.Decimal      `json:"totalValue"`
	ByStatus   map[quote.Status]int `json:"byStatus"`
}

// Store is the persistence boundary for quotes.
type Store interface {
	// CreateQuote assigns ID, CreatedAt and UpdatedAt and inserts q.
	CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error)
	// UpdateQuote replaces the mutable fields of quote id with those of q and
	// refreshes UpdatedAt. ID, QuoteNumber and CreatedAt are kept.
	UpdateQuote(ctx context.Context, id string, q quote.Quote) (quote.Quote, error)
	GetQuote(ctx context.Context, id string) (quote.Quote, error)
	GetQuoteByNumber(ctx context.Context, number string) (quote.Quote, error)
	// ListQuotes returns quotes newest first.
	ListQuotes(ctx context.Context, f ListFilter) ([]quote.Quote, error)
	// DeleteQuote reports whether a quote was removed.
	DeleteQuote(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, partnerID string) (Stats, error)
}

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on the quotes table.
type SQLStore struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

func NewSQLStore(conn *sql.DB, d db.Dialect) *SQLStore {
	return &SQLStore{db: conn, dialect: d, now: time.Now}
}

const selectQuote = `
	SELECT id, quote_number, partner_id, partner_name, partner_logo_url,
	       company, contact_name, email, phone, service_street, service_city, service_state, service_zip, po_number,
	       configuration_json, pricing_snapshot_json, original_total, discount_amount, final_total,
	       status, notes, created_at, updated_at
	FROM quotes`

func (s *SQLStore) CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error) {
	if err := q.Customer.Validate(); err != nil {
		return quote.Quote{}, err
	}
	if strings.TrimSpace(q.QuoteNumber) == "" {
		return quote.Quote{}, fmt.Errorf("create quote: quote number is required")
	}
	if q.Status == "" {
		q.Status = quote.StatusDraft
	}
	if !q.Status.IsValid() {
		return quote.Quote{}, fmt.Errorf("create quote: unknown status %q", q.Status)
	}

	configJSON, snapshotJSON, err := encodeJSON(q)
	if err != nil {
		return quote.Quote{}, err
	}

	now := s.now().UTC()
	q.ID = uuid.NewString()
	q.CreatedAt = now
	q.UpdatedAt = now
	c := q.Customer.Trimmed()

	_, err = s.db.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO quotes (
			id, quote_number, partner_id, partner_name, partner_logo_url,
			company, contact_name, email, phone, service_street, service_city, service_state, service_zip, po_number,
			configuration_json, pricing_snapshot_json, original_total, discount_amount, final_total,
			status, notes, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		q.ID, q.QuoteNumber, nullable(q.PartnerID), q.PartnerName, q.PartnerLogoURL,
		c.Company, c.ContactName, c.Email, c.Phone, c.ServiceStreet, c.ServiceCity, c.ServiceState, c.ServiceZip, c.PONumber,
		configJSON, snapshotJSON, q.OriginalTotal, q.DiscountAmount, q.FinalTotal,
		string(q.Status), q.Notes, db.FormatTime(now), db.FormatTime(now),
	)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("insert quote: %w", err)
	}

	q.Customer = c
	return q, nil
}

func (s *SQLStore) UpdateQuote(ctx context.Context, id string, q quote.Quote) (quote.Quote, error) {
	if err := q.Customer.Validate(); err != nil {
		return quote.Quote{}, err
	}
	if q.Status == "" {
		q.Status = quote.StatusDraft
	}
	if !q.Status.IsValid() {
		return quote.Quote{}, fmt.Errorf("update quote: unknown status %q", q.Status)
	}

	configJSON, snapshotJSON, err := encodeJSON(q)
	if err != nil {
		return quote.Quote{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("begin update quote transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanQuote(tx.QueryRowContext(ctx, s.dialect.Rebind(selectQuote+` WHERE id = ?`), id))
	if err != nil {
		return quote.Quote{}, err
	}

	now := s.now().UTC()
	c := q.Customer.Trimmed()

	_, err = tx.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE quotes SET
			partner_id = ?, partner_name = ?, partner_logo_url = ?,
			company = ?, contact_name = ?, email = ?, phone = ?,
			service_street = ?, service_city = ?, service_state = ?, service_zip = ?, po_number = ?,
			configuration_json = ?, pricing_snapshot_json = ?,
			original_total = ?, discount_amount = ?, final_total = ?,
			status = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`),
		nullable(q.PartnerID), q.PartnerName, q.PartnerLogoURL,
		c.Company, c.ContactName, c.Email, c.Phone,
		c.ServiceStreet, c.ServiceCity, c.ServiceState, c.ServiceZip, c.PONumber,
		configJSON, snapshotJSON,
		q.OriginalTotal, q.DiscountAmount, q.FinalTotal,
		string(q.Status), q.Notes, db.FormatTime(now),
		id,
	)
	if err != nil {
		return quote.Quote{}, fmt.Errorf("update quote %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return quote.Quote{}, fmt.Errorf("commit update quote transaction: %w", err)
	}

	q.ID = existing.ID
	q.QuoteNumber = existing.QuoteNumber
	q.CreatedAt = existing.CreatedAt
	q.UpdatedAt = now
	q.Customer = c
	return q, nil
}

func (s *SQLStore) GetQuote(ctx context.Context, id string) (quote.Quote, error) {
	return scanQuote(s.db.QueryRowContext(ctx, s.dialect.Rebind(selectQuote+` WHERE id = ?`), id))
}

func (s *SQLStore) GetQuoteByNumber(ctx context.Context, number string) (quote.Quote, error) {
	return scanQuote(s.db.QueryRowContext(ctx, s.dialect.Rebind(selectQuote+` WHERE quote_number = ?`), number))
}

func (s *SQLStore) ListQuotes(ctx context.Context, f ListFilter) ([]quote.Quote, error) {
	query := selectQuote
	var args []any
	if f.PartnerID != "" {
		query += ` WHERE partner_id = ?`
		args = append(args, f.PartnerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	out := []quote.Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return out, nil
}

func (s *SQLStore) DeleteQuote(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM quotes WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete quote %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete quote %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLStore) Stats(ctx context.Context, partnerID string) (Stats, error) {
	query := `SELECT status, final_total FROM quotes`
	var args []any
	if partnerID != "" {
		query += ` WHERE partner_id = ?`
		args = append(args, partnerID)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return Stats{}, fmt.Errorf("query quote stats: %w", err)
	}
	defer rows.Close()

	st := Stats{TotalValue: decimal.Zero, ByStatus: map[quote.Status]int{}}
	for rows.Next() {
		var (
			status string
			total  decimal.Decimal
		)
		if err := rows.Scan(&status, &total); err != nil {
			return Stats{}, fmt.Errorf("scan quote stats: %w", err)
		}
		st.Quotes++
		st.TotalValue = st.TotalValue.Add(total)
		st.ByStatus[quote.Status(status)]++
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate quote stats: %w", err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuote(s scanner) (quote.Quote, error) {
	var (
		q                    quote.Quote
		partnerID            sql.NullString
		configJSON, snapJSON string
		status               string
		createdAt, updatedAt string
	)
	err := s.Scan(
		&q.ID, &q.QuoteNumber, &partnerID, &q.PartnerName, &q.PartnerLogoURL,
		&q.Customer.Company, &q.Customer.ContactName, &q.Customer.Email, &q.Customer.Phone,
		&q.Customer.ServiceStreet, &q.Customer.ServiceCity, &q.Customer.ServiceState, &q.Customer.ServiceZip,
		&q.Customer.PONumber,
		&configJSON, &snapJSON, &q.OriginalTotal, &q.DiscountAmount, &q.FinalTotal,
		&status, &q.Notes, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return quote.Quote{}, ErrNotFound
	}
	if err != nil {
		return quote.Quote{}, fmt.Errorf("scan quote: %w", err)
	}

	q.PartnerID = partnerID.String
	q.Status = quote.Status(status)
	if err := json.Unmarshal([]byte(configJSON), &q.Configuration); err != nil {
		return quote.Quote{}, fmt.Errorf("decode configuration of quote %s: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(snapJSON), &q.PricingSnapshot); err != nil {
		return quote.Quote{}, fmt.Errorf("decode pricing snapshot of quote %s: %w", q.ID, err)
	}
	if q.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return quote.Quote{}, err
	}
	if q.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
		return quote.Quote{}, err
	}
	return q, nil
}

func encodeJSON(q quote.Quote) (string, string, error) {
	configJSON, err := json.Marshal(q.Configuration)
	if err != nil {
		return "", "", fmt.Errorf("encode configuration: %w", err)
	}
	snapshotJSON, err := json.Marshal(q.PricingSnapshot)
	if err != nil {
		return "", "", fmt.Errorf("encode pricing snapshot: %w", err)
	}
	return string(configJSON), string(snapshotJSON), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
