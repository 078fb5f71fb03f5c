package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/discount"
	"github.com/stgrky/d2d-sales-calculator/internal/document"
	"github.com/stgrky/d2d-sales-calculator/internal/financing"
	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

type fakeSaver struct {
	mu      sync.Mutex
	created []quote.Quote
	updated []quote.Quote
	fail    error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSaver) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeSaver) CreateQuote(_ context.Context, q quote.Quote) (quote.Quote, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return quote.Quote{}, f.fail
	}
	q.ID = "q-" + q.QuoteNumber
	f.created = append(f.created, q)
	return q, nil
}

func (f *fakeSaver) UpdateQuote(_ context.Context, id string, q quote.Quote) (quote.Quote, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return quote.Quote{}, f.fail
	}
	q.ID = id
	f.updated = append(f.updated, q)
	return q, nil
}

type fakeGenerator struct{ got document.Input }

func (g *fakeGenerator) Generate(in document.Input) ([]byte, error) {
	g.got = in
	return []byte("%PDF-fake"), nil
}

func campaign() *discount.Campaign {
	return &discount.Campaign{Label: discount.DefaultLabel, Rate: discount.DefaultRate, Enabled: true}
}

func newSession() *Session {
	s := New("s1", Owner{PartnerID: "p1", PartnerCode: "texaswater", CompanyName: "Texas Water Solutions"}, rates.Default(), campaign())
	s.now = func() time.Time { return time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC) }
	return s
}

func customer() quote.Customer {
	return quote.Customer{
		ContactName:   "Dana Reyes",
		ServiceStreet: "100 Congress Ave",
		ServiceCity:   "Austin",
		ServiceState:  "TX",
		ServiceZip:    "78701",
	}
}

func equalAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestNewSessionIsStale(t *testing.T) {
	s := newSession()
	if s.State() != Stale {
		t.Fatalf("state = %s, want stale", s.State())
	}
	if _, err := s.Save(context.Background(), &fakeSaver{}); !errors.Is(err, ErrStale) {
		t.Fatalf("save err = %v, want ErrStale", err)
	}
}

func TestCalculateFreezesTotal(t *testing.T) {
	s := newSession()
	s.SetModel("s")

	b, total := s.Calculate()

	if s.State() != Fresh {
		t.Fatalf("state = %s, want fresh", s.State())
	}
	equalAmount(t, "grandTotal", b.GrandTotal, "11244")
	equalAmount(t, "original", total.OriginalTotal, "11244")
	equalAmount(t, "discount", total.DiscountAmount, "1461.72")
	equalAmount(t, "final", total.FinalTotal, "9782.28")
}

func TestActiveCampaignDiscountsByDefault(t *testing.T) {
	s := newSession()
	if !s.Snapshot().DiscountActive {
		t.Fatalf("new session should start with the campaign discount on")
	}
	s.SetModel("s")
	_, total := s.Calculate()
	equalAmount(t, "final", total.FinalTotal, "9782.28")

	s.SetDiscountActive(false)
	s.Reset()
	if !s.Snapshot().DiscountActive {
		t.Fatalf("reset should restore the campaign default")
	}
	s.SetModel("s")
	_, total = s.Calculate()
	equalAmount(t, "discount", total.DiscountAmount, "1461.72")
	equalAmount(t, "final", total.FinalTotal, "9782.28")

	off := &discount.Campaign{Label: discount.DefaultLabel, Rate: discount.DefaultRate}
	if New("s2", Owner{}, rates.Default(), off).Snapshot().DiscountActive {
		t.Fatalf("disabled campaign should start with the discount off")
	}
}

func TestEveryConfigurationChangeMarksStale(t *testing.T) {
	edits := map[string]func(s *Session){
		"model":      func(s *Session) { s.SetModel("x") },
		"tank":       func(s *Session) { s.SetTank("500") },
		"city":       func(s *Session) { s.SetCity("Austin") },
		"sensor":     func(s *Session) { s.SetSensor("basic") },
		"filter":     func(s *Session) { s.SetFilter("sediment") },
		"filter qty": func(s *Session) { s.SetFilterQuantity(2) },
		"pump":       func(s *Session) { s.SetPump("standard") },
		"connection": func(s *Session) { s.SetConnectionType(quote.ConnectionTwoWay) },
		"panel":      func(s *Session) { s.SetPanelUpgrade(quote.PanelUpgrade) },
		"warranty":   func(s *Session) { s.SetWarranty(quote.Warranty5) },
		"unit pad":   func(s *Session) { s.SetUnitPad(true) },
		"tank pad":   func(s *Session) { s.SetTankPad(true) },
		"mobility":   func(s *Session) { s.SetMobilityAssistance(true) },
		"trench":     func(s *Session) { s.AddTrenchingSection(quote.Section{Type: "trench_elec", DistanceFeet: decimal.NewFromInt(10)}) },
		"above":      func(s *Session) { s.AddAboveGroundSection(quote.Section{Type: "ab_elec", DistanceFeet: decimal.NewFromInt(10)}) },
		"demolition": func(s *Session) { s.SetDemolition(true, decimal.NewFromInt(20)) },
		"adjustment": func(s *Session) { s.AddCustomAdjustment(quote.CustomAdjustment{Enabled: true, Amount: decimal.NewFromInt(50)}) },
		"replace":    func(s *Session) { s.ReplaceConfiguration(quote.NewConfiguration()) },
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			s := newSession()
			s.SetModel("s")
			s.Calculate()

			edit(s)

			if s.State() != Stale {
				t.Fatalf("state = %s after %s change, want stale", s.State(), name)
			}
		})
	}
}

func TestCustomerNotesAndStatusKeepFresh(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.Calculate()

	s.SetCustomer(customer())
	s.SetNotes("call after 5pm")
	if err := s.SetStatus(quote.StatusSent); err != nil {
		t.Fatalf("set status: %v", err)
	}

	if s.State() != Fresh {
		t.Fatalf("state = %s, want fresh", s.State())
	}
	if err := s.SetStatus("won"); err == nil {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestDiscountToggleWhileFresh(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.Calculate()

	off := s.SetDiscountActive(false)
	if off == nil {
		t.Fatalf("expected updated total")
	}
	equalAmount(t, "original", off.OriginalTotal, "11244")
	equalAmount(t, "final", off.FinalTotal, "11244")
	if s.State() != Fresh {
		t.Fatalf("toggling the discount must not stale the session")
	}

	on := s.SetDiscountActive(true)
	equalAmount(t, "discount", on.DiscountAmount, "1461.72")
	equalAmount(t, "final", on.FinalTotal, "9782.28")
}

func TestDiscountToggleWhileStaleAppliesOnNextCalculate(t *testing.T) {
	s := newSession()
	s.SetModel("s")

	if got := s.SetDiscountActive(false); got != nil {
		t.Fatalf("stale toggle returned %+v", got)
	}
	if s.State() != Stale {
		t.Fatalf("state = %s, want stale", s.State())
	}

	_, total := s.Calculate()
	equalAmount(t, "discount", total.DiscountAmount, "0")
	equalAmount(t, "final", total.FinalTotal, "11244")
}

func TestDiscountWithoutCampaign(t *testing.T) {
	s := New("s1", Owner{}, rates.Default(), nil)
	s.SetModel("s")
	s.Calculate()

	total := s.SetDiscountActive(true)
	equalAmount(t, "discount", total.DiscountAmount, "0")
	equalAmount(t, "final", total.FinalTotal, "11244")
}

func TestFinancingRequiresFresh(t *testing.T) {
	s := newSession()
	s.SetModel("s")

	if _, err := s.Financing(decimal.Zero, "45", 120); !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}

	s.Calculate()
	est, err := s.Financing(decimal.Zero, "45", 120)
	if err != nil {
		t.Fatalf("financing: %v", err)
	}
	equalAmount(t, "payment", est.MonthlyPayment, "138.30")

	if _, err := s.Financing(decimal.Zero, "90", 120); !errors.Is(err, financing.ErrUnknownPlan) {
		t.Fatalf("err = %v, want ErrUnknownPlan", err)
	}
}

func TestExportDocument(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.Calculate()

	g := &fakeGenerator{}
	if _, err := s.ExportDocument(g); err == nil {
		t.Fatalf("expected missing customer to block export")
	}

	s.SetCustomer(customer())
	s.SetDiscountActive(true)
	doc, err := s.ExportDocument(g)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Filename != "Hydropack_Quote_Dana_Reyes_100_Congress_Ave_Austin_TX_78701_2026-03-07.pdf" {
		t.Fatalf("filename = %q", doc.Filename)
	}
	if g.got.Branding.CompanyName != "Texas Water Solutions" || g.got.DiscountLabel != discount.DefaultLabel {
		t.Fatalf("unexpected document input: %+v", g.got)
	}
	equalAmount(t, "final", g.got.Total.FinalTotal, "9782.28")

	s.SetTank("500")
	if _, err := s.ExportDocument(g); !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.SetCustomer(customer())
	s.Calculate()
	saver := &fakeSaver{}

	first, err := s.Save(context.Background(), saver)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !strings.HasPrefix(first.QuoteNumber, "TE-20260307-") {
		t.Fatalf("quote number = %q", first.QuoteNumber)
	}
	if first.PartnerID != "p1" || first.PartnerName != "Texas Water Solutions" {
		t.Fatalf("partner fields = %q %q", first.PartnerID, first.PartnerName)
	}

	s.SetTank("500")
	s.Calculate()
	second, err := s.Save(context.Background(), saver)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if len(saver.created) != 1 || len(saver.updated) != 1 {
		t.Fatalf("created %d, updated %d; want 1 and 1", len(saver.created), len(saver.updated))
	}
	if second.ID != first.ID || second.QuoteNumber != first.QuoteNumber {
		t.Fatalf("identity changed: %s/%s -> %s/%s", first.ID, first.QuoteNumber, second.ID, second.QuoteNumber)
	}
	equalAmount(t, "original", second.OriginalTotal, "12078.50")
	equalAmount(t, "discount", second.DiscountAmount, "1570.21")
	equalAmount(t, "final", second.FinalTotal, "10508.29")
}

func TestSaveRequiresCustomer(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.Calculate()

	_, err := s.Save(context.Background(), &fakeSaver{})
	var missing *quote.MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingFieldsError", err)
	}
	if len(missing.Fields) != len(quote.RequiredCustomerFields) {
		t.Fatalf("missing = %v", missing.Fields)
	}
}

func TestFailedSaveCanBeRetried(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.SetCustomer(customer())
	s.Calculate()
	saver := &fakeSaver{fail: errors.New("disk full")}

	if _, err := s.Save(context.Background(), saver); err == nil {
		t.Fatalf("expected save error")
	}
	if snap := s.Snapshot(); snap.QuoteID != "" || snap.QuoteNumber != "" || snap.Saving {
		t.Fatalf("failed save changed identity: %+v", snap)
	}

	saver.fail = nil
	if _, err := s.Save(context.Background(), saver); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(saver.created) != 1 {
		t.Fatalf("created = %d, want 1", len(saver.created))
	}
}

func TestConcurrentSaveRejected(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.SetCustomer(customer())
	s.Calculate()
	saver := &fakeSaver{block: make(chan struct{}), entered: make(chan struct{}, 1)}

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background(), saver)
		done <- err
	}()
	<-saver.entered

	if _, err := s.Save(context.Background(), saver); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("err = %v, want ErrSaveInFlight", err)
	}

	close(saver.block)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if len(saver.created) != 1 {
		t.Fatalf("created = %d, want 1", len(saver.created))
	}
}

func TestResetDuringSaveForgetsResult(t *testing.T) {
	s := newSession()
	s.SetModel("s")
	s.SetCustomer(customer())
	s.Calculate()
	saver := &fakeSaver{block: make(chan struct{}), entered: make(chan struct{}, 1)}

	done := make(chan error, 1)
	go func() {
		_, err := s.Save(context.Background(), saver)
		done <- err
	}()
	<-saver.entered
	s.Reset()
	close(saver.block)
	if err := <-done; err != nil {
		t.Fatalf("save: %v", err)
	}

	snap := s.Snapshot()
	if snap.QuoteID != "" || snap.QuoteNumber != "" {
		t.Fatalf("reset session adopted saved identity: %+v", snap)
	}
	if snap.State != Stale || snap.Configuration.Model != "" || snap.Customer.ContactName != "" {
		t.Fatalf("reset did not clear the session: %+v", snap)
	}
}

func TestLoadRestoresStoredQuote(t *testing.T) {
	snapshot := rates.Default()
	snapshot.ModelPrices["s"] = rates.ModelPrice{System: decimal.NewFromInt(1), Shipping: decimal.Zero}

	cfg := quote.NewConfiguration()
	cfg.Model = "s"
	stored := quote.Quote{
		ID:              "q-1",
		QuoteNumber:     "TE-20260101-ABCDEF",
		PartnerID:       "p1",
		Customer:        customer(),
		Configuration:   cfg,
		PricingSnapshot: snapshot,
		OriginalTotal:   decimal.RequireFromString("1000"),
		DiscountAmount:  decimal.RequireFromString("130"),
		FinalTotal:      decimal.RequireFromString("870"),
		Status:          quote.StatusSent,
	}

	s := newSession()
	if err := s.Load(stored); err != nil {
		t.Fatalf("load: %v", err)
	}

	snap := s.Snapshot()
	if snap.State != Fresh || !snap.DiscountActive || snap.QuoteNumber != stored.QuoteNumber || snap.Status != quote.StatusSent {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	equalAmount(t, "final", snap.Total.FinalTotal, "870")
	if got := s.Rates().ModelPrices["s"].System; !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("loaded session should price with the stored snapshot, system = %s", got)
	}

	saver := &fakeSaver{}
	if _, err := s.Save(context.Background(), saver); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(saver.updated) != 1 || saver.updated[0].ID != "q-1" {
		t.Fatalf("expected update of loaded quote, got created=%d updated=%d", len(saver.created), len(saver.updated))
	}
}

func TestLoadRejectsOtherPartnersQuote(t *testing.T) {
	s := newSession()
	err := s.Load(quote.Quote{ID: "q-9", PartnerID: "p2", Configuration: quote.NewConfiguration()})
	if !errors.Is(err, ErrForeignQuote) {
		t.Fatalf("err = %v, want ErrForeignQuote", err)
	}
}

func TestRowEditsOutOfRange(t *testing.T) {
	s := newSession()
	s.AddTrenchingSection(quote.Section{Type: "trench_elec", DistanceFeet: decimal.NewFromInt(-5)})

	if got := s.Snapshot().Configuration.TrenchingSections[0].DistanceFeet; !got.IsZero() {
		t.Fatalf("negative distance stored as %s", got)
	}
	if err := s.RemoveTrenchingSection(3); !errors.Is(err, ErrNoSuchRow) {
		t.Fatalf("err = %v, want ErrNoSuchRow", err)
	}
	if err := s.UpdateCustomAdjustment(0, quote.CustomAdjustment{}); !errors.Is(err, ErrNoSuchRow) {
		t.Fatalf("err = %v, want ErrNoSuchRow", err)
	}
	if err := s.RemoveTrenchingSection(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n := len(s.Snapshot().Configuration.TrenchingSections); n != 0 {
		t.Fatalf("sections = %d, want 0", n)
	}
}

func TestResetAfterLoadRestoresAccountRates(t *testing.T) {
	snapshot := rates.Default()
	snapshot.TankPrices["500"] = decimal.NewFromInt(1)

	s := New("s1", Owner{CompanyName: "Aquaria"}, rates.Default(), nil)
	err := s.Load(quote.Quote{
		ID:              "q-2",
		QuoteNumber:     "TE-20260101-QQQQQQ",
		PartnerID:       "p1",
		PartnerName:     "Texas Water Solutions",
		Configuration:   quote.NewConfiguration(),
		PricingSnapshot: snapshot,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := s.Snapshot().CompanyName; got != "Texas Water Solutions" {
		t.Fatalf("loaded quote should carry its partner, got %q", got)
	}

	s.Reset()

	if got := s.Snapshot().CompanyName; got != "Aquaria" {
		t.Fatalf("company after reset = %q", got)
	}
	if got := s.Rates().TankPrices["500"]; !got.Equal(decimal.RequireFromString("770.90")) {
		t.Fatalf("tank price after reset = %s", got)
	}
}
