// Package pricing derives purchase-order totals from a base amount.
//
// All arithmetic uses shopspring/decimal; nothing here performs I/O.
package pricing

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
)

// Adjustment enumerates the supported adjustment strategies.
type Adjustment string

const (
	// AdjustNone leaves the base total untouched.
	AdjustNone Adjustment = ""
	// AdjustDiscountPercent subtracts Value percent.
	AdjustDiscountPercent Adjustment = "discount_percent"
	// AdjustMarkupPercent adds Value percent.
	AdjustMarkupPercent Adjustment = "markup_percent"
	// AdjustDiscountFixed subtracts the fixed amount Value, floored at zero.
	AdjustDiscountFixed Adjustment = "discount_fixed"
	// AdjustMarkupFixed adds the fixed amount Value.
	AdjustMarkupFixed Adjustment = "markup_fixed"
)

// Scale is the number of decimal places kept for money.
const Scale = 2

const (
	maxIntegerDigits   = 10
	maxFractionDigits  = 20
	maxCoefficientBits = 128
)

// MaxAmount is the exclusive upper bound of any stored amount. Amount
// columns are NUMERIC(12,2).
var MaxAmount = decimal.New(1, maxIntegerDigits)

var hundred = decimal.NewFromInt(100)

var (
	errNegative  = errors.New("must not be negative")
	errTooLarge  = errors.Errorf("must be less than %s", MaxAmount)
	errPrecision = errors.Errorf("must have at most %d decimal places", Scale)
)

// NormalizeAmount checks that d is a storable money amount and returns it at
// Scale decimal places. The exponent and coefficient size are inspected
// before any rescaling, so oversized inputs are rejected in constant time.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, nil
	}
	if d.IsNegative() {
		return decimal.Zero, errNegative
	}
	if outOfRange(d) {
		return decimal.Zero, errTooLarge
	}
	if d.Exponent() < -maxFractionDigits {
		return decimal.Zero, errPrecision
	}
	r := d.Round(Scale)
	if !r.Equal(d) {
		return decimal.Zero, errPrecision
	}
	if r.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, errTooLarge
	}
	return r, nil
}

// outOfRange reports whether a non-zero d is certainly at or above MaxAmount
// or too wide to rescale cheaply.
func outOfRange(d decimal.Decimal) bool {
	return d.Exponent() >= maxIntegerDigits || d.Coefficient().BitLen() > maxCoefficientBits
}

// Rule configures how a final total is derived. The zero Rule is the
// identity: final = base.
type Rule struct {
	Adjustment Adjustment
	Value      decimal.Decimal
	// PerUnit treats the base as a unit cost and multiplies it by quantity
	// before the adjustment is applied.
	PerUnit bool
}

// ParseRule builds a Rule from configuration strings.
func ParseRule(adjustment, value string, perUnit bool) (Rule, error) {
	r := Rule{
		Adjustment: Adjustment(strings.ToLower(strings.TrimSpace(adjustment))),
		PerUnit:    perUnit,
	}
	if r.Adjustment == "none" {
		r.Adjustment = AdjustNone
	}
	switch r.Adjustment {
	case AdjustNone:
		return r, nil
	case AdjustDiscountPercent, AdjustMarkupPercent, AdjustDiscountFixed, AdjustMarkupFixed:
	default:
		return Rule{}, errors.Errorf("unsupported adjustment %q", adjustment)
	}

	v, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Rule{}, errors.Wrapf(err, "parse adjustment value %q", value)
	}
	if v.IsNegative() {
		return Rule{}, errors.Errorf("adjustment value must not be negative, got %s", v)
	}
	if !v.IsZero() && (outOfRange(v) || v.Exponent() < -maxFractionDigits || v.GreaterThanOrEqual(MaxAmount)) {
		return Rule{}, errors.Errorf("adjustment value %q is out of range", value)
	}
	if r.Adjustment == AdjustDiscountPercent && v.GreaterThan(hundred) {
		return Rule{}, errors.Errorf("discount percent must not exceed 100, got %s", v)
	}
	r.Value = v
	return r, nil
}

// ComputeFinalTotal derives the final total for a base total and quantity.
// It fails with a validation error when baseTotal is not a storable amount,
// quantity is below one, or the result reaches MaxAmount.
func ComputeFinalTotal(baseTotal decimal.Decimal, quantity int, rule Rule) (decimal.Decimal, error) {
	var check apperr.FieldCheck
	baseTotal, err := NormalizeAmount(baseTotal)
	check.Add("base_total", err)
	if quantity < 1 {
		check.Add("quantity", errors.New("must be at least 1"))
	}
	if err := check.Err("invalid argument"); err != nil {
		return decimal.Zero, err
	}

	amount := baseTotal
	if rule.PerUnit {
		amount = amount.Mul(decimal.NewFromInt(int64(quantity)))
	}

	switch rule.Adjustment {
	case AdjustNone:
	case AdjustDiscountPercent:
		amount = amount.Sub(amount.Mul(rule.Value).Div(hundred))
	case AdjustMarkupPercent:
		amount = amount.Add(amount.Mul(rule.Value).Div(hundred))
	case AdjustDiscountFixed:
		amount = amount.Sub(rule.Value)
	case AdjustMarkupFixed:
		amount = amount.Add(rule.Value)
	default:
		return decimal.Zero, errors.Errorf("unsupported adjustment %q", rule.Adjustment)
	}

	final := floorAtZero(amount).Round(Scale)
	if final.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, apperr.Validation("invalid argument", "final total out of range",
			map[string]string{"final_total": errTooLarge.Error()})
	}
	return final, nil
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
