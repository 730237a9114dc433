// SPDX-License-Identifier: EPL-2.0

package adm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Time is an exact non-negative time in seconds, stored as a rational
// so that block boundaries land on exact sample positions. The zero
// value is 0s.
type Time struct {
	num, den int64
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// MakeTime returns the time num/den seconds.
func MakeTime(num, den int64) Time {
	if den == 0 {
		panic("adm: zero time denominator")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if g := gcd(num, den); g > 1 {
		num, den = num/g, den/g
	}
	return Time{num: num, den: den}
}

func (t Time) norm() (int64, int64) {
	if t.den == 0 {
		return t.num, 1
	}
	return t.num, t.den
}

func (t Time) Add(o Time) Time {
	tn, td := t.norm()
	on, od := o.norm()
	return MakeTime(tn*od+on*td, td*od)
}

func (t Time) Sub(o Time) Time {
	tn, td := t.norm()
	on, od := o.norm()
	return MakeTime(tn*od-on*td, td*od)
}

// Cmp returns -1, 0 or 1 as t is less than, equal to or greater than o.
func (t Time) Cmp(o Time) int {
	tn, td := t.norm()
	on, od := o.norm()
	d := tn*od - on*td
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Seconds returns the time as a float, for display only.
func (t Time) Seconds() float64 {
	n, d := t.norm()
	return float64(n) / float64(d)
}

// Samples returns the exact sample position t*rate; frac is true when
// the position does not land on an integer sample, in which case the
// returned value is rounded down.
func (t Time) Samples(rate int) (pos int64, frac bool) {
	n, d := t.norm()
	total := n * int64(rate)
	return total / d, total%d != 0
}

// CeilSamples returns the first integer sample not before t*rate.
func (t Time) CeilSamples(rate int) int64 {
	pos, frac := t.Samples(rate)
	if frac {
		pos++
	}
	return pos
}

// String formats the time in the ADM hh:mm:ss.sssss notation.
func (t Time) String() string {
	n, d := t.norm()
	whole := n / d
	h, m, s := whole/3600, (whole/60)%60, whole%60

	// render the fractional part to 9 places, which is exact for all
	// sample rates in use
	rem := n % d
	frac := (rem * 1e9) / d
	return fmt.Sprintf("%02d:%02d:%02d.%09d", h, m, s, frac)
}

// ParseTime parses the ADM time notation hh:mm:ss.sssss, with any
// number of fractional digits.
func ParseTime(s string) (Time, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}

	h, err1 := strconv.ParseInt(parts[0], 10, 64)
	m, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}

	secParts := strings.SplitN(parts[2], ".", 2)
	sec, err := strconv.ParseInt(secParts[0], 10, 64)
	if err != nil {
		return Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}

	t := MakeTime(h*3600+m*60+sec, 1)

	if len(secParts) == 2 && secParts[1] != "" {
		digits := secParts[1]
		if len(digits) > 18 {
			digits = digits[:18]
		}
		frac, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		den := int64(math.Pow10(len(digits)))
		t = t.Add(MakeTime(frac, den))
	}

	return t, nil
}
