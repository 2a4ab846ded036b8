package media

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateToRationalRecoversRate(t *testing.T) {
	for _, rate := range []float64{29.97, 0.1, 30, 59.94, 23.976, 0.5, 1, 7.5} {
		r := RateToRational(rate)
		require.NotZero(t, r.Den, "rate %v", rate)
		assert.InDelta(t, rate, r.Float64(), 1e-6, "rate %v -> %d/%d", rate, r.Num, r.Den)
		assert.LessOrEqual(t, r.Num, MaxRationalTerm)
		assert.LessOrEqual(t, r.Den, MaxRationalTerm)
	}
}

func TestRateToRationalExactValues(t *testing.T) {
	assert.Equal(t, Rational{Num: 30, Den: 1}, RateToRational(30))
	assert.Equal(t, Rational{Num: 1, Den: 10}, RateToRational(0.1))
	assert.Equal(t, Rational{Num: 1, Den: 1}, RateToRational(1))
}

// Rates >= 1 are reduced through their reciprocal, rates < 1 directly.
func TestRateToRationalDirection(t *testing.T) {
	for _, rate := range []float64{29.97, 1234.5678, 1e6 + 0.3} {
		inv := new(big.Rat).SetFloat64(rate)
		inv.Inv(inv)
		want := LimitDenominator(inv, MaxRationalTerm)
		got := RateToRational(rate)
		assert.Equal(t, want.Denom().Int64(), int64(got.Num), "rate %v", rate)
		assert.Equal(t, want.Num().Int64(), int64(got.Den), "rate %v", rate)
	}

	for _, rate := range []float64{0.1, 0.3333, 1e-5} {
		want := LimitDenominator(new(big.Rat).SetFloat64(rate), MaxRationalTerm)
		got := RateToRational(rate)
		assert.Equal(t, want.Num().Int64(), int64(got.Num), "rate %v", rate)
		assert.Equal(t, want.Denom().Int64(), int64(got.Den), "rate %v", rate)
	}
}

func TestRateToRationalClamps(t *testing.T) {
	assert.Equal(t, Rational{Num: MaxRationalTerm, Den: 1}, RateToRational(1e12))
	assert.Equal(t, Rational{Num: 1, Den: MaxRationalTerm}, RateToRational(1e-12))
	assert.Equal(t, Rational{Num: 0, Den: 1}, RateToRational(0))
	assert.Equal(t, Rational{Num: 0, Den: 1}, RateToRational(math.NaN()))
}

func TestLimitDenominator(t *testing.T) {
	pi := new(big.Rat).SetFloat64(math.Pi)
	assert.Equal(t, "311/99", LimitDenominator(pi, 100).RatString())
	assert.Equal(t, "355/113", LimitDenominator(pi, 1000).RatString())
	assert.Equal(t, "3/4", LimitDenominator(big.NewRat(3, 4), 10).RatString())
}
