// Package financing estimates monthly payments for the lender's promotional plans.
package financing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrUnknownPlan = errors.New("unknown financing plan")

// APR is the advertised annual percentage rate shared by every plan.
var APR = decimal.RequireFromString("7.99")

// Term is one (plan, term) row of the lender's rate sheet.
type Term struct {
	Months int             `json:"months"`
	Factor decimal.Decimal `json:"factor"`
	Min    decimal.Decimal `json:"min"`
	Max    decimal.Decimal `json:"max"`
}

// Plan groups the terms offered under one promotional plan. ID is the number of
// days of the deferred-payment promotion.
type Plan struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Terms []Term `json:"terms"`
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var plans = []Plan{
	{
		ID:   "45",
		Name: "45 Days No Payments",
		Terms: []Term{
			{Months: 120, Factor: d("0.0123"), Min: d("7500"), Max: d("100000")},
			{Months: 180, Factor: d("0.0097"), Min: d("10000"), Max: d("100000")},
			{Months: 240, Factor: d("0.0085"), Min: d("12500"), Max: d("100000")},
		},
	},
	{
		ID:   "180",
		Name: "180 Days No Payments",
		Terms: []Term{
			{Months: 120, Factor: d("0.0126"), Min: d("7500"), Max: d("100000")},
			{Months: 180, Factor: d("0.0099"), Min: d("10000"), Max: d("100000")},
			{Months: 240, Factor: d("0.0087"), Min: d("12500"), Max: d("100000")},
		},
	},
}

// Plans returns a copy of the rate sheet.
func Plans() []Plan {
	out := make([]Plan, len(plans))
	for i, p := range plans {
		out[i] = Plan{ID: p.ID, Name: p.Name, Terms: append([]Term(nil), p.Terms...)}
	}
	return out
}

// Lookup returns the term for (planID, months).
func Lookup(planID string, months int) (Term, error) {
	for _, p := range plans {
		if p.ID != planID {
			continue
		}
		for _, t := range p.Terms {
			if t.Months == months {
				return t, nil
			}
		}
		return Term{}, fmt.Errorf("plan %s has no %d month term: %w", planID, months, ErrUnknownPlan)
	}
	return Term{}, fmt.Errorf("plan %q: %w", planID, ErrUnknownPlan)
}

// Estimate is the result of a payment estimate.
type Estimate struct {
	PlanID         string          `json:"planId"`
	Months         int             `json:"months"`
	AmountFinanced decimal.Decimal `json:"amountFinanced"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	InRange        bool            `json:"inRange"`
	Min            decimal.Decimal `json:"min"`
	Max            decimal.Decimal `json:"max"`
	APR            decimal.Decimal `json:"apr"`
}

// Calculate estimates the monthly payment on total less downPayment. The financed
// amount never goes below zero. When it falls outside the term's [Min, Max] the
// estimate is flagged out of range and MonthlyPayment is zero.
func Calculate(total, downPayment decimal.Decimal, planID string, months int) (Estimate, error) {
	term, err := Lookup(planID, months)
	if err != nil {
		return Estimate{}, err
	}

	amount := total.Sub(downPayment)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	est := Estimate{
		PlanID:         planID,
		Months:         months,
		AmountFinanced: amount,
		MonthlyPayment: decimal.Zero,
		Min:            term.Min,
		Max:            term.Max,
		APR:            APR,
	}
	if amount.LessThan(term.Min) || amount.GreaterThan(term.Max) {
		return est, nil
	}
	est.InRange = true
	est.MonthlyPayment = amount.Mul(term.Factor).Round(2)
	return est, nil
}
