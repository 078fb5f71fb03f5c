// Package discount applies the optional promotional campaign to a frozen quote total.
package discount

import "github.com/shopspring/decimal"

// DefaultLabel and DefaultRate describe the year-end campaign.
const DefaultLabel = "End of Year Discount"

var DefaultRate = decimal.RequireFromString("0.13")

// Campaign is a percentage discount applied to the grand total. Rate is a fraction
// (0.13 means 13%).
type Campaign struct {
	Label   string          `json:"label"`
	Rate    decimal.Decimal `json:"rate"`
	Enabled bool            `json:"enabled"`
}

// Active reports whether c reduces totals at all.
func (c *Campaign) Active() bool {
	return c != nil && c.Enabled && c.Rate.IsPositive()
}

// Result is the outcome of applying a campaign.
type Result struct {
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
}

// Apply returns the discount for original. A nil or inactive campaign yields no
// discount and FinalTotal equal to original. The discount is rounded to cents and
// FinalTotal is always original minus DiscountAmount.
//
// Apply never looks at anything but its arguments, so toggling a campaign on and
// off against the same original returns exactly to original.
func Apply(original decimal.Decimal, c *Campaign) Result {
	if !c.Active() {
		return Result{DiscountAmount: decimal.Zero, FinalTotal: original}
	}
	amount := original.Mul(c.Rate).Round(2)
	return Result{DiscountAmount: amount, FinalTotal: original.Sub(amount)}
}
