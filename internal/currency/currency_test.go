package currency

import "testing"

func testFormatter() Formatter {
	return Formatter{
		Base:  "IDR",
		Rates: map[string]float64{"IDR": 1, "USD": 0.000063, "EUR": 0.000058},
	}
}

func TestFormatBase(t *testing.T) {
	f := testFormatter()
	cases := []struct {
		amount float64
		want   string
	}{
		{1500000, "Rp1.5M"},
		{2000000, "Rp2M"},
		{25000, "Rp25k"},
		{500, "Rp500"},
		{0, "Rp0"},
		{12.5, "Rp12.5"},
		{-1500000, "Rp-1.5M"},
	}
	for _, c := range cases {
		if got := f.Format(c.amount, "IDR"); got != c.want {
			t.Errorf("Format(%v, IDR) = %q, want %q", c.amount, got, c.want)
		}
	}
}

func TestFormatConverted(t *testing.T) {
	f := testFormatter()
	if got := f.Format(1000000, "USD"); got != "$63" {
		t.Fatalf("USD = %q, want $63", got)
	}
	if got := f.Format(1000000, "eur"); got != "€58" {
		t.Fatalf("lowercase code = %q, want €58", got)
	}
}

func TestFormatUnknownCurrencyFallsBack(t *testing.T) {
	f := testFormatter()
	if got := f.Format(25000, "GBP"); got != "Rp25k" {
		t.Fatalf("unknown code = %q, want base fallback Rp25k", got)
	}
}
