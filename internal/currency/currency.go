// Package currency formats base-currency amounts for display.
package currency

import (
	"fmt"
	"strings"
)

// Formatter converts base-currency amounts into display strings for a
// fixed set of currencies. Rates map currency code to units per one
// unit of base currency.
type Formatter struct {
	Base  string
	Rates map[string]float64
}

var symbols = map[string]string{
	"IDR": "Rp",
	"USD": "$",
	"EUR": "€",
}

// Format converts an amount in base currency to a display string in
// the requested currency, with magnitude suffixing: millions shorten
// to M, thousands to k. Unknown currencies fall back to base.
func (f Formatter) Format(amount float64, code string) string {
	code = strings.ToUpper(code)
	rate, ok := f.Rates[code]
	if !ok || rate <= 0 {
		code = f.Base
		rate = 1
	}
	converted := amount * rate
	return symbol(code) + abbreviate(converted)
}

func symbol(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " "
}

func abbreviate(v float64) string {
	neg := ""
	if v < 0 {
		neg = "-"
		v = -v
	}
	switch {
	case v >= 1e6:
		return neg + trimZero(fmt.Sprintf("%.1f", v/1e6)) + "M"
	case v >= 1e3:
		return neg + trimZero(fmt.Sprintf("%.1f", v/1e3)) + "k"
	default:
		return neg + trimZero(fmt.Sprintf("%.2f", v))
	}
}

func trimZero(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
