// Package quote defines the records a Hydropack quote is made of: the user's
// configuration, the customer, and the persisted quote itself.
package quote

import "github.com/shopspring/decimal"

// Warranty options.
const (
	WarrantyStandard = "standard"
	Warranty5        = "warranty5"
	Warranty8        = "warranty8"
)

// Connection types.
const (
	ConnectionTwoWay   = "2way-t-valve"
	ConnectionThreeWay = "3way-t-valve"
)

// Panel upgrade options.
const (
	PanelUpgrade    = "panel"
	SubpanelUpgrade = "subpanel"
)

// Section is one run of trenching or above-ground work.
type Section struct {
	Type         string          `json:"type"`
	DistanceFeet decimal.Decimal `json:"distance"`
}

// Demolition is the optional demolition service.
type Demolition struct {
	Enabled      bool            `json:"enabled"`
	DistanceFeet decimal.Decimal `json:"distance"`
}

// CustomAdjustment is a free-form signed line item added to the subtotal.
type CustomAdjustment struct {
	Enabled bool            `json:"enabled"`
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	Notes   string          `json:"notes"`
}

// Active reports whether the adjustment contributes to the total.
func (c CustomAdjustment) Active() bool {
	return c.Enabled && !c.Amount.IsZero()
}

// Configuration is everything a user selected for a quote. Empty strings mean
// "not selected".
type Configuration struct {
	Model               string             `json:"model"`
	UnitPad             bool               `json:"unitPad"`
	MobilityAssistance  bool               `json:"mobility"`
	Tank                string             `json:"tank"`
	TankPad             bool               `json:"tankPad"`
	City                string             `json:"city"`
	Sensor              string             `json:"sensor"`
	Filter              string             `json:"filter"`
	FilterQuantity      int                `json:"filterQty"`
	Pump                string             `json:"pump"`
	ConnectionType      string             `json:"connection"`
	TrenchingSections   []Section          `json:"trenchingSections"`
	AboveGroundSections []Section          `json:"ab_trenchingSections"`
	PanelUpgrade        string             `json:"panelUpgrade"`
	Warranty            string             `json:"warranty"`
	Demolition          Demolition         `json:"demolition"`
	CustomAdjustments   []CustomAdjustment `json:"customAdjs"`
}

// NewConfiguration returns the configuration a fresh session starts with: one
// empty trenching row, one empty above-ground row, one disabled custom adjustment
// and the standard warranty.
func NewConfiguration() Configuration {
	return Configuration{
		Warranty:            WarrantyStandard,
		TrenchingSections:   []Section{{}},
		AboveGroundSections: []Section{{}},
		CustomAdjustments:   []CustomAdjustment{{}},
	}
}

// Clone returns a deep copy of c.
func (c Configuration) Clone() Configuration {
	out := c
	out.TrenchingSections = append([]Section(nil), c.TrenchingSections...)
	out.AboveGroundSections = append([]Section(nil), c.AboveGroundSections...)
	out.CustomAdjustments = append([]CustomAdjustment(nil), c.CustomAdjustments...)
	return out
}

// Normalize clamps quantities and distances to be non-negative and defaults an
// empty warranty to standard.
func (c *Configuration) Normalize() {
	if c.FilterQuantity < 0 {
		c.FilterQuantity = 0
	}
	for i := range c.TrenchingSections {
		c.TrenchingSections[i].DistanceFeet = NonNegative(c.TrenchingSections[i].DistanceFeet)
	}
	for i := range c.AboveGroundSections {
		c.AboveGroundSections[i].DistanceFeet = NonNegative(c.AboveGroundSections[i].DistanceFeet)
	}
	c.Demolition.DistanceFeet = NonNegative(c.Demolition.DistanceFeet)
	if c.Warranty == "" {
		c.Warranty = WarrantyStandard
	}
}

// NonNegative returns d, or zero when d is negative.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
