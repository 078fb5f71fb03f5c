package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stgrky/d2d-sales-calculator/internal/quote"
	"github.com/stgrky/d2d-sales-calculator/internal/rates"
)

// Bucket identifies which running total a line item was added to.
type Bucket string

const (
	// BucketSubtotal lines are product, shipping, warranty, fee and adjustment amounts.
	BucketSubtotal Bucket = "subtotal"
	// BucketInstall lines are on-site labor and installation amounts.
	BucketInstall Bucket = "install"
)

// LineItem is one itemized contribution to the quote.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	LineCost    decimal.Decimal `json:"lineCost"`
	Bucket      Bucket          `json:"bucket"`
	Taxable     bool            `json:"taxable"`
}

// Breakdown contains the itemized lines and roll-up values of a quote before any
// discount. Tax is rounded to cents; every other amount is exact.
type Breakdown struct {
	LineItems           []LineItem      `json:"lineItems"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxableSubtotal     decimal.Decimal `json:"taxableSubtotal"`
	Tax                 decimal.Decimal `json:"tax"`
	InstallRelatedTotal decimal.Decimal `json:"installRelatedTotal"`
	GrandTotal          decimal.Decimal `json:"grandTotal"`
}

// ComputeBreakdown prices cfg against rt. It has no side effects; unselected
// options and unknown rate keys contribute nothing.
func ComputeBreakdown(cfg quote.Configuration, rt rates.RateTable) Breakdown {
	c := cfg.Clone()
	c.Normalize()

	b := &builder{items: []LineItem{}}
	fees := rt.FlatFees
	anySelection := false
	installSelection := false

	// Model, shipping and mobility assistance.
	mp, _ := rt.Model(c.Model)
	if c.Model != "" {
		anySelection = true
		name := rates.Label(rates.KindModel, c.Model)
		b.add(BucketSubtotal, false, name+" - System", one, "", mp.System)
		b.add(BucketSubtotal, false, name+" - Shipping", one, "", mp.Shipping)
		if c.MobilityAssistance {
			b.add(BucketSubtotal, false, "Mobility Assistance", one, "", mp.Mobility)
		}
	}

	// Unit pad. Resolves to zero without a model.
	if c.UnitPad {
		anySelection = true
		if b.add(BucketInstall, false, "Unit Concrete Pad", one, "", mp.Pad) {
			installSelection = true
		}
	}

	if c.TankPad {
		anySelection = true
		if b.add(BucketInstall, false, "Tank Concrete Pad", one, "", rt.TankPadPrices.Lookup(c.Tank)) {
			installSelection = true
		}
	}

	switch c.ConnectionType {
	case quote.ConnectionTwoWay:
		anySelection = true
		if b.add(BucketInstall, false, rates.Label(rates.KindConnection, c.ConnectionType), one, "", rates.Fee(fees.TwoWayValve)) {
			installSelection = true
		}
	case quote.ConnectionThreeWay:
		anySelection = true
		if b.add(BucketInstall, false, rates.Label(rates.KindConnection, c.ConnectionType), one, "", rates.Fee(fees.ThreeWayValve)) {
			installSelection = true
		}
	}

	switch c.PanelUpgrade {
	case quote.PanelUpgrade:
		anySelection = true
		if b.add(BucketInstall, false, rates.Label(rates.KindPanel, c.PanelUpgrade), one, "", rates.Fee(fees.PanelUpgrade)) {
			installSelection = true
		}
	case quote.SubpanelUpgrade:
		anySelection = true
		if b.add(BucketInstall, false, rates.Label(rates.KindPanel, c.PanelUpgrade), one, "", rates.Fee(fees.SubpanelUpgrade)) {
			installSelection = true
		}
	}

	for _, s := range c.TrenchingSections {
		if s.Type == "" || !s.DistanceFeet.IsPositive() {
			continue
		}
		anySelection = true
		if b.add(BucketInstall, false, rates.Label(rates.KindTrench, s.Type), s.DistanceFeet, "ft", rt.TrenchRatesPerFoot.Lookup(s.Type)) {
			installSelection = true
		}
	}
	for _, s := range c.AboveGroundSections {
		if s.Type == "" || !s.DistanceFeet.IsPositive() {
			continue
		}
		anySelection = true
		if b.add(BucketInstall, false, rates.Label(rates.KindAboveGround, s.Type), s.DistanceFeet, "ft", rt.AboveGroundRatesPerFoot.Lookup(s.Type)) {
			installSelection = true
		}
	}

	// Tank and, when a city is chosen, its delivery fee.
	if c.Tank != "" {
		anySelection = true
		b.add(BucketSubtotal, true, rates.Label(rates.KindTank, c.Tank)+" Tank", one, "", rt.TankPrices.Lookup(c.Tank))
		if c.City != "" {
			b.add(BucketSubtotal, false, "Tank Delivery to "+rates.Label(rates.KindCity, c.City), one, "", rt.CityDeliveryFees.Lookup(c.City))
		}
	}

	if c.Sensor != "" {
		anySelection = true
		b.add(BucketSubtotal, true, "Tank Sensor - "+rates.Label(rates.KindSensor, c.Sensor), one, "", rt.SensorPrices.Lookup(c.Sensor))
	}

	if c.Filter != "" && c.FilterQuantity > 0 {
		anySelection = true
		desc := fmt.Sprintf("Extra Filter - %s", rates.Label(rates.KindFilter, c.Filter))
		b.add(BucketSubtotal, true, desc, decimal.NewFromInt(int64(c.FilterQuantity)), "", rt.FilterUnitPrices.Lookup(c.Filter))
	}

	if c.Pump != "" {
		anySelection = true
		b.add(BucketSubtotal, true, "External Water Pump - "+rates.Label(rates.KindPump, c.Pump), one, "", rt.PumpPrices.Lookup(c.Pump))
		if b.add(BucketInstall, false, "Pump Installation", one, "", rates.Fee(fees.PumpInstall)) {
			installSelection = true
		}
	}

	if c.Model != "" {
		switch c.Warranty {
		case quote.Warranty5:
			anySelection = true
			b.add(BucketSubtotal, false, rates.Label(rates.KindWarranty, c.Warranty), one, "", mp.Warranty5)
		case quote.Warranty8:
			anySelection = true
			b.add(BucketSubtotal, false, rates.Label(rates.KindWarranty, c.Warranty), one, "", mp.Warranty8)
		}
	}

	if c.Demolition.Enabled && c.Demolition.DistanceFeet.IsPositive() {
		anySelection = true
		if b.add(BucketInstall, false, "Demolition", c.Demolition.DistanceFeet, "ft", rates.Fee(fees.DemolitionPerFoot)) {
			installSelection = true
		}
	}

	// Custom adjustments are signed and never taxed.
	for _, adj := range c.CustomAdjustments {
		if !adj.Active() {
			continue
		}
		anySelection = true
		label := adj.Label
		if label == "" {
			label = "Custom Adjustment"
		}
		b.add(BucketSubtotal, false, label, one, "", adj.Amount)
	}

	if anySelection {
		b.add(BucketSubtotal, false, "Administrative Fee", one, "", rates.Fee(fees.Admin))
		b.add(BucketSubtotal, false, "Net 30 Fee", one, "", rates.Fee(fees.Net30))
	}
	if installSelection {
		b.add(BucketInstall, false, "Commissioning Fee", one, "", rates.Fee(fees.Commission))
		b.add(BucketInstall, false, "Aquaria Management Fee", one, "", rates.Fee(fees.AquariaManagement))
		b.add(BucketInstall, false, "Disposal Fee", one, "", rates.Fee(fees.Disposal))
	}

	tax := b.taxable.Mul(nonNegative(rt.TaxRate)).Round(2)

	return Breakdown{
		LineItems:           b.items,
		Subtotal:            b.subtotal,
		TaxableSubtotal:     b.taxable,
		Tax:                 tax,
		InstallRelatedTotal: b.install,
		GrandTotal:          b.subtotal.Add(b.install).Add(tax),
	}
}

var one = decimal.NewFromInt(1)

type builder struct {
	items    []LineItem
	subtotal decimal.Decimal
	taxable  decimal.Decimal
	install  decimal.Decimal
}

// add records qty × unitCost in bucket and reports whether anything non-zero
// was added. Zero lines are not itemized.
func (b *builder) add(bucket Bucket, taxable bool, desc string, qty decimal.Decimal, unit string, unitCost decimal.Decimal) bool {
	cost := qty.Mul(unitCost)
	if cost.IsZero() {
		return false
	}
	switch bucket {
	case BucketInstall:
		b.install = b.install.Add(cost)
	default:
		b.subtotal = b.subtotal.Add(cost)
		if taxable {
			b.taxable = b.taxable.Add(cost)
		}
	}
	b.items = append(b.items, LineItem{
		Description: desc,
		Quantity:    qty,
		Unit:        unit,
		UnitCost:    unitCost,
		LineCost:    cost,
		Bucket:      bucket,
		Taxable:     taxable,
	})
	return true
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
