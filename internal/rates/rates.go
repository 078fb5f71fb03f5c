// Package rates holds the static price catalog used to quote Hydropack systems.
package rates

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ModelPrice groups every price that depends on the selected Hydropack model.
type ModelPrice struct {
	System    decimal.Decimal `json:"system"`
	Shipping  decimal.Decimal `json:"ship"`
	Pad       decimal.Decimal `json:"pad"`
	Mobility  decimal.Decimal `json:"mobility"`
	Warranty5 decimal.Decimal `json:"warranty5"`
	Warranty8 decimal.Decimal `json:"warranty8"`
}

// Prices maps an option id to its price.
type Prices map[string]decimal.Decimal

// Lookup returns the price for key. Unknown keys and negative prices resolve to zero.
func (p Prices) Lookup(key string) decimal.Decimal {
	v, ok := p[key]
	if !ok || v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// Fees are the flat charges applied by the pricing engine.
type Fees struct {
	Admin             decimal.Decimal `json:"admin"`
	Commission        decimal.Decimal `json:"commission"`
	AquariaManagement decimal.Decimal `json:"aquariaManagement"`
	Disposal          decimal.Decimal `json:"disposal"`
	Net30             decimal.Decimal `json:"net30"`
	PumpInstall       decimal.Decimal `json:"pumpInstall"`
	PanelUpgrade      decimal.Decimal `json:"panelUpgrade"`
	SubpanelUpgrade   decimal.Decimal `json:"subpanelUpgrade"`
	TwoWayValve       decimal.Decimal `json:"twoWayValve"`
	ThreeWayValve     decimal.Decimal `json:"threeWayValve"`
	DemolitionPerFoot decimal.Decimal `json:"demolitionPerFoot"`
}

// RateTable is the complete, immutable set of rates a quote is priced against.
// It is persisted with every quote as the pricing snapshot.
type RateTable struct {
	ModelPrices             map[string]ModelPrice `json:"modelPrices"`
	TankPrices              Prices                `json:"tankPrices"`
	TankPadPrices           Prices                `json:"tankPads"`
	CityDeliveryFees        Prices                `json:"cityDelivery"`
	SensorPrices            Prices                `json:"sensorPrices"`
	FilterUnitPrices        Prices                `json:"filterPrices"`
	PumpPrices              Prices                `json:"pumpPrices"`
	TrenchRatesPerFoot      Prices                `json:"trenchRates"`
	AboveGroundRatesPerFoot Prices                `json:"ab_trenchRates"`
	FlatFees                Fees                  `json:"fees"`
	TaxRate                 decimal.Decimal       `json:"taxRate"`
}

// Model returns the prices of model id and whether the model is priced at all.
// Negative prices are clamped to zero.
func (t RateTable) Model(id string) (ModelPrice, bool) {
	mp, ok := t.ModelPrices[id]
	if !ok {
		return ModelPrice{}, false
	}
	return ModelPrice{
		System:    nonNegative(mp.System),
		Shipping:  nonNegative(mp.Shipping),
		Pad:       nonNegative(mp.Pad),
		Mobility:  nonNegative(mp.Mobility),
		Warranty5: nonNegative(mp.Warranty5),
		Warranty8: nonNegative(mp.Warranty8),
	}, true
}

// Fee returns f clamped to zero.
func Fee(f decimal.Decimal) decimal.Decimal { return nonNegative(f) }

// Validate reports the first negative price found in the table.
func (t RateTable) Validate() error {
	ids := make([]string, 0, len(t.ModelPrices))
	for id := range t.ModelPrices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		mp := t.ModelPrices[id]
		for name, v := range map[string]decimal.Decimal{
			"system": mp.System, "ship": mp.Shipping, "pad": mp.Pad,
			"mobility": mp.Mobility, "warranty5": mp.Warranty5, "warranty8": mp.Warranty8,
		} {
			if v.IsNegative() {
				return fmt.Errorf("modelPrices[%s].%s must not be negative", id, name)
			}
		}
	}

	categories := []struct {
		name   string
		prices Prices
	}{
		{"tankPrices", t.TankPrices},
		{"tankPads", t.TankPadPrices},
		{"cityDelivery", t.CityDeliveryFees},
		{"sensorPrices", t.SensorPrices},
		{"filterPrices", t.FilterUnitPrices},
		{"pumpPrices", t.PumpPrices},
		{"trenchRates", t.TrenchRatesPerFoot},
		{"ab_trenchRates", t.AboveGroundRatesPerFoot},
	}
	for _, c := range categories {
		keys := make([]string, 0, len(c.prices))
		for k := range c.prices {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if c.prices[k].IsNegative() {
				return fmt.Errorf("%s[%s] must not be negative", c.name, k)
			}
		}
	}

	f := t.FlatFees
	for name, v := range map[string]decimal.Decimal{
		"admin": f.Admin, "commission": f.Commission, "aquariaManagement": f.AquariaManagement,
		"disposal": f.Disposal, "net30": f.Net30, "pumpInstall": f.PumpInstall,
		"panelUpgrade": f.PanelUpgrade, "subpanelUpgrade": f.SubpanelUpgrade,
		"twoWayValve": f.TwoWayValve, "threeWayValve": f.ThreeWayValve,
		"demolitionPerFoot": f.DemolitionPerFoot,
	} {
		if v.IsNegative() {
			return fmt.Errorf("fees.%s must not be negative", name)
		}
	}
	if t.TaxRate.IsNegative() {
		return fmt.Errorf("taxRate must not be negative")
	}
	return nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
