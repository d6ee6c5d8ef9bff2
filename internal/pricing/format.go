package pricing

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotANumber is returned by ParseAmount for text that is not a decimal number.
var ErrNotANumber = errors.New("not a number")

// ParseAmount parses user-entered text such as "12.5" or "12,5".
// On failure it returns NaN together with ErrNotANumber.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), ErrNotANumber
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return math.NaN(), ErrNotANumber
	}
	return d.InexactFloat64(), nil
}

// Format renders a price with precision that shrinks as the magnitude grows:
// no decimals from 1000, one from 100, two from 1 and three below that.
// Trailing zeros are dropped.
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	var places int32
	switch abs := math.Abs(v); {
	case abs >= 1000:
		places = 0
	case abs >= 100:
		places = 1
	case abs >= 1:
		places = 2
	default:
		places = 3
	}
	return decimal.NewFromFloat(v).Round(places).String()
}
