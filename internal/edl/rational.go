package edl

import (
	"fmt"
	"math"
)

// Rational is an exact time value in seconds, emitted as "NUM/DENs".
// Values are reduced to lowest terms before emission.
type Rational struct {
	Num int64
	Den int64
}

// ntscRates maps fps×1000 (rounded) to the NTSC frame duration.
var ntscRates = map[int64]Rational{
	23976: {1001, 24000},
	29970: {1001, 30000},
	59940: {1001, 60000},
}

// FrameDuration returns the per-frame duration for the given fps:
// 1001/N000 for the NTSC family, 1/round(fps) otherwise.
func FrameDuration(fps float64) Rational {
	key := int64(math.Round(fps * 1000))
	if r, ok := ntscRates[key]; ok {
		return r
	}
	return Rational{1, int64(math.Round(fps))}
}

// IsNTSC reports whether the fps belongs to the NTSC family.
func IsNTSC(fps float64) bool {
	_, ok := ntscRates[int64(math.Round(fps*1000))]
	return ok
}

// MulFrames scales the frame duration by an integer frame count.
func (r Rational) MulFrames(frames int) Rational {
	return Rational{Num: r.Num * int64(frames), Den: r.Den}.Reduce()
}

// Reduce returns the rational in lowest terms with a positive
// denominator.
func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	if r.Num == 0 {
		return Rational{0, 1}
	}
	g := gcd(abs64(r.Num), abs64(r.Den))
	return Rational{r.Num / g, r.Den / g}
}

// Seconds returns the floating-point value, for comparisons only;
// emission always uses the fractional form.
func (r Rational) Seconds() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String renders the value in the structural XML time syntax.
func (r Rational) String() string {
	reduced := r.Reduce()
	if reduced.Num == 0 {
		return "0s"
	}
	if reduced.Den == 1 {
		return fmt.Sprintf("%ds", reduced.Num)
	}
	return fmt.Sprintf("%d/%ds", reduced.Num, reduced.Den)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
