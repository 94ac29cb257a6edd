package arithshard

import (
	sherrors "github.com/tamirms/arithshard/errors"
)

// Float is the numeric type an encoding is carried out in. The width bounds
// how many symbols can narrow the interval before it stops shrinking:
// float32 runs out after a handful of symbols, float64 after roughly twice
// as many.
type Float interface {
	~float32 | ~float64
}

// Distribution supplies per-symbol probability intervals to the encoder.
// *Model implements it.
type Distribution interface {
	// ProbabilityInterval returns the [lo, hi) share of [0, 1) owned by c.
	ProbabilityInterval(c byte) (lo, hi float64, err error)

	// Validate returns ErrUnsupportedSymbol if any byte of s has no interval.
	Validate(s string) error
}

// Interval is the state of one encoding: the current [Low, High) range and
// the number of symbols that narrowed it.
type Interval[F Float] struct {
	Low      F
	High     F
	Consumed int
}

// Width returns High - Low.
func (iv Interval[F]) Width() F {
	return iv.High - iv.Low
}

// Midpoint returns the representative scalar of the interval.
func (iv Interval[F]) Midpoint() F {
	return iv.Low + (iv.High-iv.Low)/2
}

// Encode maps s to the midpoint of its final interval under d.
//
// Once the interval is epsilon wide or narrower the remaining symbols are
// skipped, so strings sharing a long enough prefix map to the same key.
func Encode[F Float](s string, d Distribution, epsilon F) (F, error) {
	iv, err := EncodeInterval(s, d, epsilon)
	if err != nil {
		return 0, err
	}
	return iv.Midpoint(), nil
}

// EncodeInterval narrows [0, 1) by each symbol of s in turn and returns the
// final interval. The whole of s is validated first, including symbols past
// the truncation point; on failure no interval is returned.
func EncodeInterval[F Float](s string, d Distribution, epsilon F) (Interval[F], error) {
	if epsilon < 0 || epsilon != epsilon {
		return Interval[F]{}, sherrors.ErrInvalidEpsilon
	}
	if err := d.Validate(s); err != nil {
		return Interval[F]{}, err
	}

	iv := Interval[F]{Low: 0, High: 1}
	for i := 0; i < len(s); i++ {
		pLow, pHigh, err := d.ProbabilityInterval(s[i])
		if err != nil {
			return Interval[F]{}, err
		}
		r := iv.High - iv.Low
		high := iv.Low + r*F(pHigh)
		low := iv.Low + r*F(pLow)
		// Rounding in low+r can land one ulp past the old bound.
		if high > iv.High {
			high = iv.High
		}
		if low > high {
			low = high
		}
		iv.High, iv.Low = high, low
		iv.Consumed++
		if iv.High-iv.Low <= epsilon {
			break
		}
	}
	return iv, nil
}
