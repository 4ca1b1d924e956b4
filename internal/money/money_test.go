package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMinor(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{"0", 0},
		{"1", 100},
		{"1.5", 150},
		{"1.50", 150},
		{"0.01", 1},
		{"-2.75", -275},
		{"+3", 300},
		{".99", 99},
		{"100.00", 10000},
	}
	for _, tc := range cases {
		got, err := ParseMinor(tc.input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.input, tc.want, got)
		}
	}
}

func TestParseMinorRejects(t *testing.T) {
	for _, input := range []string{"", "abc", "1.2.3", "1.234", "1,50", "--1"} {
		if _, err := ParseMinor(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestParseMinorRejectsOverflow(t *testing.T) {
	// Amounts whose minor-unit value exceeds int64 must error, not wrap.
	for _, input := range []string{
		"99999999999999999.99",
		"-99999999999999999.99",
		"92233720368547758.08",
	} {
		got, err := ParseMinor(input)
		if err == nil {
			t.Fatalf("expected error for %q, got %d", input, got)
		}
	}
	// The largest whole amount under the bound still parses.
	got, err := ParseMinor("92233720368547757.99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 9223372036854775799 {
		t.Fatalf("expected 9223372036854775799, got %d", got)
	}
}

func TestFormatMinor(t *testing.T) {
	cases := []struct {
		value int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{150, "1.50"},
		{-275, "-2.75"},
		{10000, "100.00"},
	}
	for _, tc := range cases {
		if got := FormatMinor(tc.value); got != tc.want {
			t.Fatalf("%d: expected %s, got %s", tc.value, tc.want, got)
		}
	}
}

func TestDecimalToMinorRoundsBankers(t *testing.T) {
	cases := []struct {
		input string
		want  int64
	}{
		{"1.005", 100},
		{"1.015", 102},
		{"1.02", 102},
		{"-1.005", -100},
		{"500", 50000},
	}
	for _, tc := range cases {
		amount, err := decimal.NewFromString(tc.input)
		if err != nil {
			t.Fatalf("bad input %q: %v", tc.input, err)
		}
		if got := DecimalToMinor(amount); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.input, tc.want, got)
		}
	}
}

func TestMinorToDecimalRoundTrip(t *testing.T) {
	for _, value := range []int64{0, 1, 150, -275, 10000} {
		if got := DecimalToMinor(MinorToDecimal(value)); got != value {
			t.Fatalf("%d did not round-trip, got %d", value, got)
		}
	}
}
