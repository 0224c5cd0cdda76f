// Package fixed implements millisecond durations carried as scaled
// integers with five fractional decimal digits, matching the precision
// of the X-Response-Time header. All arithmetic is integral so that
// concurrent accumulation and averaging are exact; floats appear only
// at display boundaries.
package fixed

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale is the number of fractional decimal digits carried by a Millis.
const Scale = 5

// unit is the scaled-integer weight of one millisecond (10^Scale).
const unit = 100_000

// maxWhole is the largest whole-millisecond part that still fits in an
// int64 once scaled.
const maxWhole = math.MaxInt64 / unit

// Millis is a non-negative duration in milliseconds with exactly Scale
// fractional digits, stored as value*10^Scale.
type Millis int64

// FromInt returns the Millis for a whole number of milliseconds.
func FromInt(ms int64) Millis {
	return Millis(ms * unit)
}

// Parse converts a plain base-10 decimal string, with at most Scale
// fractional digits, into a Millis. Signs, exponents, spaces, and
// excess precision are all rejected rather than rounded.
func Parse(s string) (Millis, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		return 0, fmt.Errorf("malformed duration %q", s)
	}
	if hasFrac && (frac == "" || len(frac) > Scale) {
		return 0, fmt.Errorf("malformed duration %q", s)
	}

	var ms int64
	for _, c := range []byte(whole) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		ms = ms*10 + int64(c-'0')
		if ms > maxWhole {
			return 0, fmt.Errorf("duration %q out of range", s)
		}
	}

	v := ms * unit
	pow := int64(unit)
	for _, c := range []byte(frac) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		pow /= 10
		v += int64(c-'0') * pow
	}
	return Millis(v), nil
}

// String renders the value with exactly Scale fractional digits, the
// same shape Parse accepts.
func (m Millis) String() string {
	return fmt.Sprintf("%d.%05d", int64(m)/unit, int64(m)%unit)
}

// Float64 returns the value in milliseconds. Display and histogram use
// only; measurement math never leaves the integer domain.
func (m Millis) Float64() float64 {
	return float64(m) / unit
}

// MarshalJSON renders the canonical string form so results files never
// pick up float formatting artifacts.
func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts the canonical string form.
func (m *Millis) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("fixed: %w", err)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Mean divides an exact sum by n, rounding half-up on the last retained
// digit. n must be positive and sum non-negative.
func Mean(sum Millis, n int) Millis {
	return divHalfUp(int64(sum), int64(n))
}

// MeanOf reduces values to their arithmetic mean with half-up rounding.
// An empty slice yields zero.
func MeanOf(values []Millis) Millis {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	return divHalfUp(sum, int64(len(values)))
}

// divHalfUp is integer division with round-half-up for non-negative
// operands: a remainder of at least half the divisor bumps the
// quotient.
func divHalfUp(sum, n int64) Millis {
	q := sum / n
	if r := sum % n; 2*r >= n {
		q++
	}
	return Millis(q)
}
