package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberScale is the fixed-point scale of YOLOL numbers: three decimal places.
const NumberScale = 1000

// ParseNumber reads a decimal literal into thousandths. Digits past the third
// decimal place are truncated, like the target does.
func ParseNumber(s string) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}

	if len(frac) > 3 {
		frac = frac[:3]
	}
	frac += strings.Repeat("0", 3-len(frac))
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}

	v := w*NumberScale + f
	if neg {
		v = -v
	}
	return v, nil
}

// FormatNumber is the inverse of ParseNumber, without trailing zeros.
func FormatNumber(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	whole, frac := v/NumberScale, v%NumberScale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	return sign + strconv.FormatInt(whole, 10) + "." + strings.TrimRight(fmt.Sprintf("%03d", frac), "0")
}

// NewNumber builds a number literal from a fixed-point value.
func NewNumber(v int64) *Number { return &Number{Value: FormatNumber(v)} }
