package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeFinalTotal(t *testing.T) {
	tests := []struct {
		name     string
		base     decimal.Decimal
		quantity int
		rule     Rule
		want     decimal.Decimal
	}{
		{
			name:     "default rule is identity",
			base:     d("500"),
			quantity: 10,
			want:     d("500"),
		},
		{
			name:     "default rule keeps zero",
			base:     decimal.Zero,
			quantity: 1,
			want:     decimal.Zero,
		},
		{
			name:     "per unit multiplies by quantity",
			base:     d("12.50"),
			quantity: 4,
			rule:     Rule{PerUnit: true},
			want:     d("50"),
		},
		{
			name:     "discount percent",
			base:     d("200"),
			quantity: 3,
			rule:     Rule{Adjustment: AdjustDiscountPercent, Value: d("15")},
			want:     d("170"),
		},
		{
			name:     "markup percent per unit",
			base:     d("10"),
			quantity: 3,
			rule:     Rule{Adjustment: AdjustMarkupPercent, Value: d("10"), PerUnit: true},
			want:     d("33"),
		},
		{
			name:     "fixed discount floors at zero",
			base:     d("5"),
			quantity: 1,
			rule:     Rule{Adjustment: AdjustDiscountFixed, Value: d("9")},
			want:     decimal.Zero,
		},
		{
			name:     "fixed markup",
			base:     d("99.99"),
			quantity: 2,
			rule:     Rule{Adjustment: AdjustMarkupFixed, Value: d("0.01")},
			want:     d("100"),
		},
		{
			name:     "rounds to cents",
			base:     d("10"),
			quantity: 1,
			rule:     Rule{Adjustment: AdjustDiscountPercent, Value: d("33.333")},
			want:     d("6.67"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeFinalTotal(tt.base, tt.quantity, tt.rule)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
			assert.False(t, got.IsNegative())

			again, err := ComputeFinalTotal(tt.base, tt.quantity, tt.rule)
			require.NoError(t, err)
			assert.True(t, got.Equal(again), "repeated call must be deterministic")
		})
	}
}

func TestComputeFinalTotal_InvalidArgument(t *testing.T) {
	_, err := ComputeFinalTotal(d("-1"), 1, Rule{})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.FieldsOf(err), "base_total")

	_, err = ComputeFinalTotal(d("1"), 0, Rule{})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.FieldsOf(err), "quantity")
}

func TestComputeFinalTotal_OutOfRange(t *testing.T) {
	_, err := ComputeFinalTotal(d("10000000000"), 1, Rule{})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.FieldsOf(err), "base_total")

	got, err := ComputeFinalTotal(d("9999999999.99"), 1, Rule{})
	require.NoError(t, err)
	assert.True(t, d("9999999999.99").Equal(got))

	_, err = ComputeFinalTotal(d("1000"), 10_000_000, Rule{PerUnit: true})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.FieldsOf(err), "final_total")

	_, err = ComputeFinalTotal(d("9999999999"), 1, Rule{Adjustment: AdjustMarkupPercent, Value: d("50")})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, apperr.FieldsOf(err), "final_total")
}

func TestNormalizeAmount(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want string
		err  bool
	}{
		{in: "0", want: "0"},
		{in: "0e5000000", want: "0"},
		{in: "12.5", want: "12.5"},
		{in: "1.500", want: "1.5"},
		{in: "9999999999.99", want: "9999999999.99"},
		{in: "10000000000", err: true},
		{in: "1e10", err: true},
		{in: "1e5000000", err: true},
		{in: "1e-5000000", err: true},
		{in: "1.005", err: true},
		{in: "-0.01", err: true},
	} {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAmount(d(tt.in))
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestNormalizeAmount_HugeExponentIsCheap(t *testing.T) {
	start := time.Now()
	for range 100 {
		_, err := NormalizeAmount(d("1e5000000"))
		require.Error(t, err)
		_, err = NormalizeAmount(d("1e-5000000"))
		require.Error(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestComputeFinalTotal_RepeatedRecomputationIsStable(t *testing.T) {
	rule := Rule{Adjustment: AdjustMarkupPercent, Value: d("7.5")}
	first, err := ComputeFinalTotal(d("0.10"), 1, rule)
	require.NoError(t, err)

	for range 1000 {
		got, err := ComputeFinalTotal(d("0.10"), 1, rule)
		require.NoError(t, err)
		require.True(t, first.Equal(got))
	}
}

func TestParseRule(t *testing.T) {
	r, err := ParseRule("", "", false)
	require.NoError(t, err)
	assert.Equal(t, AdjustNone, r.Adjustment)

	r, err = ParseRule("none", "ignored", true)
	require.NoError(t, err)
	assert.Equal(t, AdjustNone, r.Adjustment)
	assert.True(t, r.PerUnit)

	r, err = ParseRule(" Discount_Percent ", "12.5", false)
	require.NoError(t, err)
	assert.Equal(t, AdjustDiscountPercent, r.Adjustment)
	assert.True(t, d("12.5").Equal(r.Value))

	_, err = ParseRule("bogus", "1", false)
	require.Error(t, err)

	_, err = ParseRule("markup_fixed", "abc", false)
	require.Error(t, err)

	_, err = ParseRule("discount_fixed", "-3", false)
	require.Error(t, err)

	_, err = ParseRule("markup_fixed", "1e5000000", false)
	require.Error(t, err)

	_, err = ParseRule("discount_percent", "101", false)
	require.Error(t, err)
}
