// Package session tracks one in-progress quote: its configuration, whether the
// frozen total still matches it, and the save/export/financing actions that are
// only allowed while it does.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/discount"
	"github.com/stgrky/d2d-sales-calculator/internal/document"
	"github.com/stgrky/d2d-sales-calculator/internal/financing"
	"github.com/stgrky/d2d-sales-calculator/internal/partner"
	"github.com/stgrky/d2d-sales-calculator/internal/pricing"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

var (
	// ErrStale is returned by gated actions when the configuration changed after
	// the last calculation.
	ErrStale = errors.New("quote total is out of date, recalculate first")
	// ErrSaveInFlight is returned when a save is attempted while another is running.
	ErrSaveInFlight = errors.New("a save for this quote is already in progress")
	// ErrNoSuchRow is returned for section or adjustment indexes out of range.
	ErrNoSuchRow = errors.New("no such row")
	// ErrForeignQuote is returned when a partner session loads another account's quote.
	ErrForeignQuote = errors.New("quote belongs to another partner")
)

// State is the lifecycle state of a session.
type State string

const (
	Stale State = "stale"
	Fresh State = "fresh"
)

// Saver is the part of the quote store a session saves through.
type Saver interface {
	CreateQuote(ctx context.Context, q quote.Quote) (quote.Quote, error)
	UpdateQuote(ctx context.Context, id string, q quote.Quote) (quote.Quote, error)
}

// Owner identifies the account quotes of a session are saved under. The zero
// value is the main calculator without a partner.
type Owner struct {
	PartnerID    string
	PartnerCode  string
	CompanyName  string
	LogoURL      string
	Address      string
	PrimaryColor string
}

func ownerOf(p partner.Partner) Owner {
	o := Owner{
		CompanyName:  p.CompanyName,
		LogoURL:      p.LogoURL,
		Address:      p.DisplayAddress,
		PrimaryColor: p.PrimaryColor,
	}
	if !p.IsHQ() {
		o.PartnerID = p.ID
		o.PartnerCode = p.Code
	}
	return o
}

// Session is one user's quote in progress. All methods are safe for concurrent
// use; each runs as one logical operation.
type Session struct {
	mu sync.Mutex

	id       string
	owner    Owner
	rates    rates.RateTable
	campaign *discount.Campaign
	now      func() time.Time

	// Account and rates the session was opened with; Load may replace both.
	baseOwner Owner
	baseRates rates.RateTable

	cfg            quote.Configuration
	customer       quote.Customer
	notes          string
	status         quote.Status
	discountActive bool

	state     State
	breakdown *pricing.Breakdown
	total     *quote.Total

	quoteID     string
	quoteNumber string
	saving      bool
	generation  int
}

// New returns a stale session with an empty configuration. campaign may be nil;
// an active campaign starts with the discount toggle on.
func New(id string, owner Owner, rt rates.RateTable, campaign *discount.Campaign) *Session {
	return &Session{
		id:             id,
		owner:          owner,
		rates:          rt,
		campaign:       campaign,
		now:            time.Now,
		baseOwner:      owner,
		baseRates:      rt,
		cfg:            quote.NewConfiguration(),
		status:         quote.StatusDraft,
		discountActive: campaign.Active(),
		state:          Stale,
	}
}

func (s *Session) ID() string { return s.id }

// Snapshot is a read-only copy of the session's state.
type Snapshot struct {
	ID             string              `json:"id"`
	State          State               `json:"state"`
	PartnerCode    string              `json:"partnerCode,omitempty"`
	CompanyName    string              `json:"companyName,omitempty"`
	Configuration  quote.Configuration `json:"configuration"`
	Customer       quote.Customer      `json:"customer"`
	Notes          string              `json:"notes,omitempty"`
	Status         quote.Status        `json:"status"`
	DiscountActive bool                `json:"discountActive"`
	Campaign       *discount.Campaign  `json:"campaign,omitempty"`
	Breakdown      *pricing.Breakdown  `json:"breakdown,omitempty"`
	Total          *quote.Total        `json:"total,omitempty"`
	QuoteID        string              `json:"quoteId,omitempty"`
	QuoteNumber    string              `json:"quoteNumber,omitempty"`
	Saving         bool                `json:"saving"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		State:          s.state,
		PartnerCode:    s.owner.PartnerCode,
		CompanyName:    s.owner.CompanyName,
		Configuration:  s.cfg.Clone(),
		Customer:       s.customer,
		Notes:          s.notes,
		Status:         s.status,
		DiscountActive: s.discountActive,
		QuoteID:        s.quoteID,
		QuoteNumber:    s.quoteNumber,
		Saving:         s.saving,
	}
	if s.campaign.Active() {
		c := *s.campaign
		snap.Campaign = &c
	}
	if s.breakdown != nil {
		b := *s.breakdown
		snap.Breakdown = &b
	}
	if s.total != nil {
		t := *s.total
		snap.Total = &t
	}
	return snap
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Rates returns the rate table the session prices with.
func (s *Session) Rates() rates.RateTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rates
}

// mutate applies fn to the configuration and marks the session stale.
func (s *Session) mutate(fn func(c *quote.Configuration) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.cfg); err != nil {
		return err
	}
	s.state = Stale
	return nil
}

func set(fn func(c *quote.Configuration)) func(c *quote.Configuration) error {
	return func(c *quote.Configuration) error {
		fn(c)
		return nil
	}
}

func (s *Session) SetModel(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.Model = id }))
}

func (s *Session) SetTank(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.Tank = id }))
}

func (s *Session) SetCity(city string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.City = city }))
}

func (s *Session) SetSensor(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.Sensor = id }))
}

func (s *Session) SetFilter(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.Filter = id }))
}

// SetFilterQuantity sets the number of extra filters. Negative values become 0.
func (s *Session) SetFilterQuantity(n int) {
	if n < 0 {
		n = 0
	}
	_ = s.mutate(set(func(c *quote.Configuration) { c.FilterQuantity = n }))
}

func (s *Session) SetPump(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.Pump = id }))
}

func (s *Session) SetConnectionType(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.ConnectionType = id }))
}

func (s *Session) SetPanelUpgrade(id string) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.PanelUpgrade = id }))
}

// SetWarranty selects a warranty; an empty id selects the standard warranty.
func (s *Session) SetWarranty(id string) {
	if id == "" {
		id = quote.WarrantyStandard
	}
	_ = s.mutate(set(func(c *quote.Configuration) { c.Warranty = id }))
}

func (s *Session) SetUnitPad(on bool) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.UnitPad = on }))
}

func (s *Session) SetTankPad(on bool) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.TankPad = on }))
}

func (s *Session) SetMobilityAssistance(on bool) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.MobilityAssistance = on }))
}

func (s *Session) AddTrenchingSection(sec quote.Section) {
	sec.DistanceFeet = quote.NonNegative(sec.DistanceFeet)
	_ = s.mutate(set(func(c *quote.Configuration) { c.TrenchingSections = append(c.TrenchingSections, sec) }))
}

func (s *Session) UpdateTrenchingSection(i int, sec quote.Section) error {
	sec.DistanceFeet = quote.NonNegative(sec.DistanceFeet)
	return s.mutate(func(c *quote.Configuration) error {
		if i < 0 || i >= len(c.TrenchingSections) {
			return fmt.Errorf("trenching section %d: %w", i, ErrNoSuchRow)
		}
		c.TrenchingSections[i] = sec
		return nil
	})
}

func (s *Session) RemoveTrenchingSection(i int) error {
	return s.mutate(func(c *quote.Configuration) error {
		if i < 0 || i >= len(c.TrenchingSections) {
			return fmt.Errorf("trenching section %d: %w", i, ErrNoSuchRow)
		}
		c.TrenchingSections = append(c.TrenchingSections[:i], c.TrenchingSections[i+1:]...)
		return nil
	})
}

func (s *Session) AddAboveGroundSection(sec quote.Section) {
	sec.DistanceFeet = quote.NonNegative(sec.DistanceFeet)
	_ = s.mutate(set(func(c *quote.Configuration) { c.AboveGroundSections = append(c.AboveGroundSections, sec) }))
}

func (s *Session) UpdateAboveGroundSection(i int, sec quote.Section) error {
	sec.DistanceFeet = quote.NonNegative(sec.DistanceFeet)
	return s.mutate(func(c *quote.Configuration) error {
		if i < 0 || i >= len(c.AboveGroundSections) {
			return fmt.Errorf("above-ground section %d: %w", i, ErrNoSuchRow)
		}
		c.AboveGroundSections[i] = sec
		return nil
	})
}

func (s *Session) RemoveAboveGroundSection(i int) error {
	return s.mutate(func(c *quote.Configuration) error {
		if i < 0 || i >= len(c.AboveGroundSections) {
			return fmt.Errorf("above-ground section %d: %w", i, ErrNoSuchRow)
		}
		c.AboveGroundSections = append(c.AboveGroundSections[:i], c.AboveGroundSections[i+1:]...)
		return nil
	})
}

// SetDemolition enables or disables demolition over distance feet.
func (s *Session) SetDemolition(enabled bool, distance decimal.Decimal) {
	d := quote.Demolition{Enabled: enabled, DistanceFeet: quote.NonNegative(distance)}
	_ = s.mutate(set(func(c *quote.Configuration) { c.Demolition = d }))
}

func (s *Session) AddCustomAdjustment(a quote.CustomAdjustment) {
	_ = s.mutate(set(func(c *quote.Configuration) { c.CustomAdjustments = append(c.CustomAdjustments, a) }))
}

func (s *Session) UpdateCustomAdjustment(i int, a quote.CustomAdjustment) error {
	return s.mutate(func(c *quote.Configuration) error {
		if i < 0 || i >= len(c.CustomAdjustments) {
			return fmt.Errorf("custom adjustment %d: %w", i, ErrNoSuchRow)
		}
		c.CustomAdjustments[i] = a
		return nil
	})
}

func (s *Session) RemoveCustomAdjustment(i int) error {
	return s.mutate(func(c *quote.Configuration) error {
		if i < 0 || i >= len(c.CustomAdjustments) {
			return fmt.Errorf("custom adjustment %d: %w", i, ErrNoSuchRow)
		}
		c.CustomAdjustments = append(c.CustomAdjustments[:i], c.CustomAdjustments[i+1:]...)
		return nil
	})
}

// ReplaceConfiguration swaps in a whole configuration, normalizing it first.
func (s *Session) ReplaceConfiguration(cfg quote.Configuration) {
	cfg = cfg.Clone()
	cfg.Normalize()
	_ = s.mutate(set(func(c *quote.Configuration) { *c = cfg }))
}

// SetCustomer replaces the customer details. Customer details are not a pricing
// input, so the session stays fresh.
func (s *Session) SetCustomer(c quote.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customer = c
}

// SetNotes sets internal notes saved with the quote.
func (s *Session) SetNotes(notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = notes
}

// SetStatus sets the sales stage saved with the quote.
func (s *Session) SetStatus(st quote.Status) error {
	if !st.IsValid() {
		return fmt.Errorf("unknown quote status %q", st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	return nil
}

// Calculate prices the current configuration, applies the discount if it is
// toggled on, freezes the result and marks the session fresh.
func (s *Session) Calculate() (pricing.Breakdown, quote.Total) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := pricing.ComputeBreakdown(s.cfg, s.rates)
	t := s.applyDiscount(b.GrandTotal)

	s.breakdown = &b
	s.total = &t
	s.state = Fresh
	return b, t
}

func (s *Session) applyDiscount(original decimal.Decimal) quote.Total {
	var c *discount.Campaign
	if s.discountActive {
		c = s.campaign
	}
	r := discount.Apply(original, c)
	return quote.Total{OriginalTotal: original, DiscountAmount: r.DiscountAmount, FinalTotal: r.FinalTotal}
}

// SetDiscountActive toggles the campaign. A fresh session reapplies the discount
// to its frozen original total without re-running the pricing engine; a stale
// session only records the toggle for the next calculation. The returned total
// is nil when the session is stale.
func (s *Session) SetDiscountActive(on bool) *quote.Total {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.discountActive = on
	if s.state != Fresh || s.total == nil {
		return nil
	}
	t := s.applyDiscount(s.total.OriginalTotal)
	s.total = &t
	out := t
	return &out
}

// Financing estimates monthly payments on the frozen final total.
func (s *Session) Financing(downPayment decimal.Decimal, planID string, months int) (financing.Estimate, error) {
	s.mu.Lock()
	if s.state != Fresh || s.total == nil {
		s.mu.Unlock()
		return financing.Estimate{}, ErrStale
	}
	final := s.total.FinalTotal
	s.mu.Unlock()

	return financing.Calculate(final, downPayment, planID, months)
}

// Document is a rendered quote document.
type Document struct {
	Filename string
	Data     []byte
}

// ExportDocument renders the frozen quote with g. It requires a fresh session
// and complete customer details; otherwise nothing is rendered.
func (s *Session) ExportDocument(g document.Generator) (Document, error) {
	s.mu.Lock()
	if s.state != Fresh || s.total == nil || s.breakdown == nil {
		s.mu.Unlock()
		return Document{}, ErrStale
	}
	if err := s.customer.Validate(); err != nil {
		s.mu.Unlock()
		return Document{}, err
	}
	now := s.now()
	in := document.Input{
		QuoteNumber:   s.quoteNumber,
		Date:          now,
		Customer:      s.customer.Trimmed(),
		Configuration: s.cfg.Clone(),
		Breakdown:     *s.breakdown,
		Total:         *s.total,
		TaxRate:       s.rates.TaxRate,
		Branding: document.Branding{
			CompanyName:  s.owner.CompanyName,
			Address:      s.owner.Address,
			PrimaryColor: s.owner.PrimaryColor,
		},
	}
	if s.campaign != nil {
		in.DiscountLabel = s.campaign.Label
	}
	s.mu.Unlock()

	data, err := g.Generate(in)
	if err != nil {
		return Document{}, err
	}
	return Document{Filename: document.Filename(in.Customer, now), Data: data}, nil
}

// Save persists the frozen quote. The first successful save creates a record and
// later saves update it in place. A failed save leaves the session as it was so
// the user can retry.
func (s *Session) Save(ctx context.Context, store Saver) (quote.Quote, error) {
	s.mu.Lock()
	if s.state != Fresh || s.total == nil {
		s.mu.Unlock()
		return quote.Quote{}, ErrStale
	}
	if s.saving {
		s.mu.Unlock()
		return quote.Quote{}, ErrSaveInFlight
	}
	if err := s.customer.Validate(); err != nil {
		s.mu.Unlock()
		return quote.Quote{}, err
	}

	number := s.quoteNumber
	if number == "" {
		number = quote.GenerateNumber(s.owner.PartnerCode, s.now())
	}
	q := quote.Quote{
		QuoteNumber:     number,
		Customer:        s.customer.Trimmed(),
		PartnerID:       s.owner.PartnerID,
		PartnerName:     s.owner.CompanyName,
		PartnerLogoURL:  s.owner.LogoURL,
		Configuration:   s.cfg.Clone(),
		PricingSnapshot: s.rates,
		OriginalTotal:   s.total.OriginalTotal,
		DiscountAmount:  s.total.DiscountAmount,
		FinalTotal:      s.total.FinalTotal,
		Status:          s.status,
		Notes:           s.notes,
	}
	existingID := s.quoteID
	generation := s.generation
	s.saving = true
	s.mu.Unlock()

	var (
		saved quote.Quote
		err   error
	)
	if existingID == "" {
		saved, err = store.CreateQuote(ctx, q)
	} else {
		saved, err = store.UpdateQuote(ctx, existingID, q)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		return quote.Quote{}, err
	}
	// A reset while the save was running abandons the saved identity.
	if s.generation == generation {
		s.quoteID = saved.ID
		s.quoteNumber = saved.QuoteNumber
	}
	return saved, nil
}

// Load replaces the session with a stored quote. The stored totals become the
// frozen total, the discount toggle is restored from the stored discount and
// the session is fresh. Later saves update the loaded quote.
func (s *Session) Load(q quote.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseOwner.PartnerID != "" && q.PartnerID != s.baseOwner.PartnerID {
		return ErrForeignQuote
	}

	cfg := q.Configuration.Clone()
	cfg.Normalize()
	s.owner = s.baseOwner
	s.rates = s.baseRates
	if q.PricingSnapshot.ModelPrices != nil {
		s.rates = q.PricingSnapshot
	}
	if s.owner.PartnerID == "" && q.PartnerID != "" {
		s.owner.PartnerID = q.PartnerID
		s.owner.CompanyName = q.PartnerName
		s.owner.LogoURL = q.PartnerLogoURL
	}

	b := pricing.ComputeBreakdown(cfg, s.rates)
	t := q.Total()

	s.cfg = cfg
	s.customer = q.Customer
	s.notes = q.Notes
	s.status = q.Status
	s.discountActive = q.DiscountAmount.IsPositive()
	s.breakdown = &b
	s.total = &t
	s.state = Fresh
	s.quoteID = q.ID
	s.quoteNumber = q.QuoteNumber
	s.generation++
	return nil
}

// Reset clears the configuration, customer and totals and forgets any saved
// quote. The discount toggle goes back to the campaign default. A save still in
// flight is abandoned.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.owner = s.baseOwner
	s.rates = s.baseRates
	s.cfg = quote.NewConfiguration()
	s.customer = quote.Customer{}
	s.notes = ""
	s.status = quote.StatusDraft
	s.discountActive = s.campaign.Active()
	s.breakdown = nil
	s.total = nil
	s.state = Stale
	s.quoteID = ""
	s.quoteNumber = ""
	s.generation++
}
