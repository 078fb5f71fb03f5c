package rates

import "github.com/shopspring/decimal"

// Default returns the HQ catalog. Each call returns fresh maps, so callers may
// modify the result without affecting other quotes.
func Default() RateTable {
	return RateTable{
		ModelPrices: map[string]ModelPrice{
			"s": {
				System: usd("9999"), Shipping: usd("645"), Pad: usd("1750"),
				Mobility: usd("500"), Warranty5: usd("999"), Warranty8: usd("1499"),
			},
			"standard": {
				System: usd("17499"), Shipping: usd("1095"), Pad: usd("1850"),
				Mobility: usd("500"), Warranty5: usd("1749"), Warranty8: usd("2599"),
			},
			"x": {
				System: usd("29999"), Shipping: usd("1550"), Pad: usd("2100"),
				Mobility: usd("1000"), Warranty5: usd("2999"), Warranty8: usd("4499"),
			},
		},
		TankPrices: Prices{
			"500": usd("770.90"), "1550": usd("1430.35"), "3000": usd("2428.90"), "5000": usd("5125.99"),
		},
		TankPadPrices: Prices{
			"500": usd("1750"), "1550": usd("1850"), "3000": usd("2300"), "5000": usd("4200"),
		},
		CityDeliveryFees: Prices{
			"Austin": usd("999"), "Corpus Christi": usd("858"), "Dallas": usd("577.50"),
			"Houston": usd("200"), "San Antonio": usd("660"),
		},
		SensorPrices:     Prices{"normal": usd("35")},
		FilterUnitPrices: Prices{"s": usd("100"), "standard": usd("150"), "x": usd("200")},
		PumpPrices:       Prices{"dab": usd("1900"), "mini": usd("800")},
		TrenchRatesPerFoot: Prices{
			"trench_elec": usd("32.5"), "trench_plumb": usd("58.5"), "trench_comb": usd("65.5"),
		},
		AboveGroundRatesPerFoot: Prices{
			"ab_elec": usd("35.5"), "ab_plumb": usd("26.5"), "ab_comb": usd("35.5"),
		},
		FlatFees: Fees{
			Admin:             usd("500"),
			Commission:        usd("2500"),
			AquariaManagement: usd("500"),
			Disposal:          usd("200"),
			Net30:             usd("100"),
			PumpInstall:       usd("200"),
			PanelUpgrade:      usd("8000"),
			SubpanelUpgrade:   usd("3000"),
			TwoWayValve:       usd("100"),
			ThreeWayValve:     usd("300"),
			DemolitionPerFoot: usd("150"),
		},
		TaxRate: usd("0.0825"),
	}
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
