// Package money holds integer minor-unit arithmetic shared by pricing,
// quotations, invoices and reconciliation.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a value in minor units (cents).
type Amount = int64

// MulDiv returns round(a*num/den) rounding half away from zero.
func MulDiv(a, num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if den < 0 {
		num, den = -num, -den
	}
	p := a * num
	q := p / den
	r := p % den
	if r < 0 {
		r = -r
	}
	if 2*r >= den {
		if p < 0 {
			q--
		} else {
			q++
		}
	}
	return q
}

// Bps returns amount * bps / 10000, rounded.
func Bps(amount int64, bps int64) int64 {
	return MulDiv(amount, bps, 10000)
}

// Percent returns amount * pct / 100 for a fractional percentage, rounded to
// 1/100 of a percent.
func Percent(amount int64, pct float64) int64 {
	return Bps(amount, int64(roundHalfAway(pct*100)))
}

func roundHalfAway(f float64) float64 {
	if f < 0 {
		return -float64(int64(-f + 0.5))
	}
	return float64(int64(f + 0.5))
}

// Parse converts a decimal string ("1,234.50", "-12.3", "+7") into minor units.
// At most two fraction digits are accepted.
func Parse(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	switch raw[0] {
	case '-':
		neg = true
		raw = raw[1:]
	case '+':
		raw = raw[1:]
	}
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !digits(whole) || !digits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: too many decimals", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return v, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Format renders minor units as a plain decimal string.
func Format(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func Abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
