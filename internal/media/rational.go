package media

import (
	"math"
	"math/big"
)

// MaxRationalTerm bounds both terms of a frame rate handed to the codec library.
const MaxRationalTerm = 1<<31 - 1

// Rational is an exact frame rate, Num/Den frames per second.
type Rational struct {
	Num int
	Den int
}

// Float64 returns the rate as a float, 0 for an invalid rational.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Inverse returns Den/Num, the time base matching a frame rate.
func (r Rational) Inverse() Rational {
	return Rational{Num: r.Den, Den: r.Num}
}

// RateToRational converts a frame rate to a rational whose terms fit in MaxRationalTerm.
// Rates of 1 or more reduce the reciprocal and swap it, so the numerator is the bounded
// term; rates below 1 are reduced directly. Out of range rates are clamped.
func RateToRational(rate float64) Rational {
	if math.IsNaN(rate) || rate <= 0 {
		return Rational{Num: 0, Den: 1}
	}
	rate = math.Max(rate, 1/float64(MaxRationalTerm))
	rate = math.Min(rate, float64(MaxRationalTerm))

	r := new(big.Rat).SetFloat64(rate)
	var out Rational
	if rate >= 1 {
		f := LimitDenominator(r.Inv(r), MaxRationalTerm)
		out = Rational{Num: int(f.Denom().Int64()), Den: int(f.Num().Int64())}
	} else {
		f := LimitDenominator(r, MaxRationalTerm)
		out = Rational{Num: int(f.Num().Int64()), Den: int(f.Denom().Int64())}
	}
	if out.Num == 0 {
		out.Num = 1
	}
	if out.Den == 0 {
		out.Den = 1
	}
	return out
}

// LimitDenominator returns the closest fraction to x with a denominator of at most maxDen,
// walking the continued fraction expansion of x. x must be non-negative.
func LimitDenominator(x *big.Rat, maxDen int64) *big.Rat {
	limit := big.NewInt(maxDen)
	if x.Denom().Cmp(limit) <= 0 {
		return new(big.Rat).Set(x)
	}

	p0, q0 := big.NewInt(0), big.NewInt(1)
	p1, q1 := big.NewInt(1), big.NewInt(0)
	n := new(big.Int).Set(x.Num())
	d := new(big.Int).Set(x.Denom())
	for {
		a := new(big.Int).Quo(n, d)
		q2 := new(big.Int).Add(q0, new(big.Int).Mul(a, q1))
		if q2.Cmp(limit) > 0 {
			break
		}
		p2 := new(big.Int).Add(p0, new(big.Int).Mul(a, p1))
		p0, q0, p1, q1 = p1, q1, p2, q2
		n, d = d, new(big.Int).Sub(n, new(big.Int).Mul(a, d))
	}

	k := new(big.Int).Quo(new(big.Int).Sub(limit, q0), q1)
	bound1 := new(big.Rat).SetFrac(
		new(big.Int).Add(p0, new(big.Int).Mul(k, p1)),
		new(big.Int).Add(q0, new(big.Int).Mul(k, q1)),
	)
	bound2 := new(big.Rat).SetFrac(p1, q1)

	dist1 := new(big.Rat).Abs(new(big.Rat).Sub(bound1, x))
	dist2 := new(big.Rat).Abs(new(big.Rat).Sub(bound2, x))
	if dist2.Cmp(dist1) <= 0 {
		return bound2
	}
	return bound1
}
