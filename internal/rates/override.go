package rates

import (
	"maps"

	"github.com/shopspring/decimal"
)

// Override is a partner-supplied fragment of a RateTable. A nil field means the
// category is not overridden. A supplied category replaces the base category as
// a whole: there is no per-key fallback inside a category.
type Override struct {
	ModelPrices             map[string]ModelPrice `json:"modelPrices,omitempty"`
	TankPrices              Prices                `json:"tankPrices,omitempty"`
	TankPadPrices           Prices                `json:"tankPads,omitempty"`
	CityDeliveryFees        Prices                `json:"cityDelivery,omitempty"`
	SensorPrices            Prices                `json:"sensorPrices,omitempty"`
	FilterUnitPrices        Prices                `json:"filterPrices,omitempty"`
	PumpPrices              Prices                `json:"pumpPrices,omitempty"`
	TrenchRatesPerFoot      Prices                `json:"trenchRates,omitempty"`
	AboveGroundRatesPerFoot Prices                `json:"ab_trenchRates,omitempty"`
	FlatFees                *Fees                 `json:"fees,omitempty"`
	TaxRate                 *decimal.Decimal      `json:"taxRate,omitempty"`
}

// Apply returns base with every category supplied by o replaced. Maps in the
// result are copies; neither base nor o is modified.
func Apply(base RateTable, o *Override) RateTable {
	out := RateTable{
		ModelPrices:             maps.Clone(base.ModelPrices),
		TankPrices:              maps.Clone(base.TankPrices),
		TankPadPrices:           maps.Clone(base.TankPadPrices),
		CityDeliveryFees:        maps.Clone(base.CityDeliveryFees),
		SensorPrices:            maps.Clone(base.SensorPrices),
		FilterUnitPrices:        maps.Clone(base.FilterUnitPrices),
		PumpPrices:              maps.Clone(base.PumpPrices),
		TrenchRatesPerFoot:      maps.Clone(base.TrenchRatesPerFoot),
		AboveGroundRatesPerFoot: maps.Clone(base.AboveGroundRatesPerFoot),
		FlatFees:                base.FlatFees,
		TaxRate:                 base.TaxRate,
	}
	if o == nil {
		return out
	}

	if o.ModelPrices != nil {
		out.ModelPrices = maps.Clone(o.ModelPrices)
	}
	replace(&out.TankPrices, o.TankPrices)
	replace(&out.TankPadPrices, o.TankPadPrices)
	replace(&out.CityDeliveryFees, o.CityDeliveryFees)
	replace(&out.SensorPrices, o.SensorPrices)
	replace(&out.FilterUnitPrices, o.FilterUnitPrices)
	replace(&out.PumpPrices, o.PumpPrices)
	replace(&out.TrenchRatesPerFoot, o.TrenchRatesPerFoot)
	replace(&out.AboveGroundRatesPerFoot, o.AboveGroundRatesPerFoot)
	if o.FlatFees != nil {
		out.FlatFees = *o.FlatFees
	}
	if o.TaxRate != nil {
		out.TaxRate = *o.TaxRate
	}
	return out
}

func replace(dst *Prices, src Prices) {
	if src != nil {
		*dst = maps.Clone(src)
	}
}
