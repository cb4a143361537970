package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1.234,56", "1234.56", true},
		{"1234.56", "1234.56", true},
		{"12,34", "12.34", true},
		{"12.34", "12.34", true},
		{"1.234.567,89", "1234567.89", true},
		{"1", "1", true},
		{"0,01", "0.01", true},
		{" 2,50 ", "2.5", true},
		{"-10,00", "-10", true},
		{"abc", "", false},
		{"1,2,3", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tc.in, err)
			}
			want, _ := decimal.NewFromString(tc.out)
			if !got.Equal(want) {
				t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
			}
		} else if err == nil {
			t.Fatalf("ParseAmount(%q) expected error, got %s", tc.in, got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	dec := func(s string) *decimal.Decimal {
		d, err := decimal.NewFromString(s)
		if err != nil {
			t.Fatalf("bad test value %q: %v", s, err)
		}
		return &d
	}

	cases := []struct {
		in   *decimal.Decimal
		want string
	}{
		{dec("1234.5"), "R$ 1.234,50"},
		{dec("1234.56"), "R$ 1.234,56"},
		{dec("0"), "R$ 0,00"},
		{dec("12"), "R$ 12,00"},
		{dec("999"), "R$ 999,00"},
		{dec("1000"), "R$ 1.000,00"},
		{dec("1234567.89"), "R$ 1.234.567,89"},
		{dec("-42.1"), "R$ -42,10"},
		{nil, "N/A"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	values := []string{"0.01", "1.50", "999.99", "1000.00", "1234.56", "1234567.89"}
	for _, v := range values {
		d, _ := decimal.NewFromString(v)
		formatted := strings.TrimPrefix(FormatAmount(&d), "R$ ")
		parsed, err := ParseAmount(formatted)
		if err != nil {
			t.Fatalf("round trip %s: parse %q failed: %v", v, formatted, err)
		}
		if !parsed.Equal(d) {
			t.Errorf("round trip %s: got %s via %q", v, parsed, formatted)
		}
	}
}

func TestFormatAmountExactFloatConversion(t *testing.T) {
	// Float inputs must travel through their shortest exact string form,
	// never raw binary construction.
	d := decimal.NewFromFloat(0.1)
	if got := FormatAmount(&d); got != "R$ 0,10" {
		t.Errorf("FormatAmount(0.1) = %q, want %q", got, "R$ 0,10")
	}
	d = decimal.NewFromFloat(1234.56)
	if got := FormatAmount(&d); got != "R$ 1.234,56" {
		t.Errorf("FormatAmount(1234.56) = %q, want %q", got, "R$ 1.234,56")
	}
}
