package validate

import (
	"testing"

	"github.com/partsync/partsync/internal/model"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"12.34", 12.34, true},
		{"$12.34", 12.34, true},
		{"1,234.56", 1234.56, true},
		{"$ 45.67 ", 45.67, true},
		{"0", 0, true},
		{"", 0, false},
		{model.NotFoundSentinel, 0, false},
		{"call for pricing", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParsePrice(tc.raw)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestChangePercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		old, new    float64
		want        float64
		wantDefined bool
	}{
		{"five percent up", 10.00, 10.50, 5.0, true},
		{"forty percent up", 10.00, 14.00, 40.0, true},
		{"decrease", 10.00, 9.00, -10.0, true},
		{"rounds to two decimals", 3.00, 3.10, 3.33, true},
		{"zero old price undefined", 0, 5.00, 0, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, defined := ChangePercent(tc.old, tc.new)
			if defined != tc.wantDefined || got != tc.want {
				t.Errorf("ChangePercent(%v, %v) = %v, %v; want %v, %v",
					tc.old, tc.new, got, defined, tc.want, tc.wantDefined)
			}
		})
	}
}
