package utils

import "testing"

func TestParseAmountNumeric(t *testing.T) {
	if got := ParseAmount(42.5); got != 42.5 {
		t.Errorf("float64: expected 42.5, got %v", got)
	}
	if got := ParseAmount(7); got != 7 {
		t.Errorf("int: expected 7, got %v", got)
	}
	if got := ParseAmount(nil); got != 0 {
		t.Errorf("nil: expected 0, got %v", got)
	}
}

func TestParseAmountStrings(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"50", 50},
		{"50.25", 50.25},
		{"$1,250.00", 1250},
		{"1.250,50", 1250.50},
		{"€ 99,90", 99.90},
		{"-12.5", -12.5},
		{"", 0},
		{"n/a", 0},
	}

	for _, c := range cases {
		if got := ParseAmount(c.in); got != c.want {
			t.Errorf("ParseAmount(%q): expected %v, got %v", c.in, c.want, got)
		}
	}
}
