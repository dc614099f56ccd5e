package validate

import (
	"math"
	"strconv"
	"strings"

	"github.com/partsync/partsync/internal/model"
)

// ParsePrice extracts a numeric price from a raw string, tolerating currency
// symbols, thousands separators, and surrounding text. Returns false for the
// "Not Found" sentinel, empty strings, and values with no digits.
func ParsePrice(raw string) (float64, bool) {
	if raw == "" || raw == model.NotFoundSentinel {
		return 0, false
	}

	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ChangePercent computes (new-old)/old*100 rounded to two decimals. The
// second return value is false when the old price is zero: the percentage is
// undefined and callers must fail the item rather than divide.
func ChangePercent(oldPrice, newPrice float64) (float64, bool) {
	if oldPrice == 0 {
		return 0, false
	}
	return math.Round((newPrice-oldPrice)/oldPrice*100*100) / 100, true
}
