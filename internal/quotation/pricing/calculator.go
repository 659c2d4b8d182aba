// Package pricing turns the raw inputs of a quotation line into its derived
// monetary fields and aggregates them into quotation totals.
//
// All arithmetic is fixed-point. Nothing is rounded while computing: callers
// round with Round (half-up, two places) only when a value is stored or shown,
// so aggregates never accumulate per-line rounding drift.
package pricing

import (
	"fmt"

	e "github.com/gartstein/quotation/internal/quotation/errors"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places kept for stored and displayed amounts.
const Places = 2

// Storage limits. Rates keep four places, percentages two, and amounts stay
// below 10^16.
const (
	rateScale    int32 = 4
	percentScale int32 = 2
)

var (
	hundred    = decimal.NewFromInt(100)
	maxRate    = decimal.New(1, 14)
	maxPercent = decimal.NewFromInt(1000)
	maxAmount  = decimal.New(1, 16)
)

// Line holds the user-editable pricing inputs of a quotation line.
type Line struct {
	UnitRate           decimal.Decimal
	Quantity           int
	DiscountPercentage decimal.Decimal
	GSTPercentage      decimal.Decimal
}

// Amounts holds the derived fields of a line.
type Amounts struct {
	DiscountRate decimal.Decimal
	ExpandedRate decimal.Decimal
	GSTValue     decimal.Decimal
	LineTotal    decimal.Decimal
}

// Totals holds the aggregates of a quotation.
type Totals struct {
	SubTotal   decimal.Decimal
	TotalGST   decimal.Decimal
	GrandTotal decimal.Decimal
}

// Validate checks the line constraints and reports the first offending field.
func Validate(l Line) error {
	switch {
	case l.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1, got %d", e.ErrValidation, l.Quantity)
	case l.UnitRate.IsNegative():
		return fmt.Errorf("%w: unit_rate must not be negative", e.ErrValidation)
	case l.DiscountPercentage.IsNegative() || l.DiscountPercentage.GreaterThan(hundred):
		return fmt.Errorf("%w: discount_percentage must be between 0 and 100", e.ErrValidation)
	case l.GSTPercentage.IsNegative():
		return fmt.Errorf("%w: gst_percentage must not be negative", e.ErrValidation)
	case !l.UnitRate.LessThan(maxRate):
		return fmt.Errorf("%w: unit_rate must be less than %s", e.ErrValidation, maxRate)
	case !l.GSTPercentage.LessThan(maxPercent):
		return fmt.Errorf("%w: gst_percentage must be less than %s", e.ErrValidation, maxPercent)
	case !fits(l.UnitRate, rateScale):
		return fmt.Errorf("%w: unit_rate allows at most %d decimal places", e.ErrValidation, rateScale)
	case !fits(l.DiscountPercentage, percentScale):
		return fmt.Errorf("%w: discount_percentage allows at most %d decimal places", e.ErrValidation, percentScale)
	case !fits(l.GSTPercentage, percentScale):
		return fmt.Errorf("%w: gst_percentage allows at most %d decimal places", e.ErrValidation, percentScale)
	}
	return nil
}

// fits reports whether d carries no significant digits beyond places.
func fits(d decimal.Decimal, places int32) bool {
	return d.Truncate(places).Equal(d)
}

// CalculateLine computes the unrounded derived fields of a single line.
func CalculateLine(l Line) (Amounts, error) {
	if err := Validate(l); err != nil {
		return Amounts{}, err
	}

	discountRate := l.UnitRate.Mul(decimal.NewFromInt(1).Sub(l.DiscountPercentage.Div(hundred)))
	expanded := discountRate.Mul(decimal.NewFromInt(int64(l.Quantity)))
	gst := expanded.Mul(l.GSTPercentage).Div(hundred)

	return Amounts{
		DiscountRate: discountRate,
		ExpandedRate: expanded,
		GSTValue:     gst,
		LineTotal:    expanded.Add(gst),
	}, nil
}

// Aggregate sums unrounded line amounts into quotation totals.
func Aggregate(amounts []Amounts) Totals {
	sub := decimal.Zero
	gst := decimal.Zero
	for _, a := range amounts {
		sub = sub.Add(a.ExpandedRate)
		gst = gst.Add(a.GSTValue)
	}
	return Totals{
		SubTotal:   sub,
		TotalGST:   gst,
		GrandTotal: sub.Add(gst),
	}
}

// Quote validates and prices every line, then aggregates. The returned values
// are unrounded. Errors name the 1-based line position.
func Quote(lines []Line) ([]Amounts, Totals, error) {
	if len(lines) == 0 {
		return nil, Totals{}, fmt.Errorf("%w: at least one item is required", e.ErrValidation)
	}

	amounts := make([]Amounts, 0, len(lines))
	for i, l := range lines {
		a, err := CalculateLine(l)
		if err != nil {
			return nil, Totals{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		amounts = append(amounts, a)
	}
	totals := Aggregate(amounts)
	if !Round(totals.GrandTotal).LessThan(maxAmount) {
		return nil, Totals{}, fmt.Errorf("%w: grand total exceeds %s", e.ErrValidation, maxAmount)
	}
	return amounts, totals, nil
}

// Round rounds half-up to two places. Amounts are never negative, so
// decimal's half-away-from-zero rounding is half-up here.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Rounded returns the presentation form of the line amounts.
func (a Amounts) Rounded() Amounts {
	return Amounts{
		DiscountRate: Round(a.DiscountRate),
		ExpandedRate: Round(a.ExpandedRate),
		GSTValue:     Round(a.GSTValue),
		LineTotal:    Round(a.LineTotal),
	}
}

// Rounded returns the presentation form of the totals.
func (t Totals) Rounded() Totals {
	return Totals{
		SubTotal:   Round(t.SubTotal),
		TotalGST:   Round(t.TotalGST),
		GrandTotal: Round(t.GrandTotal),
	}
}
