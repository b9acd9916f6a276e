// Package units converts balances expressed in a network's smallest indivisible unit into decimal strings.
package units

import (
	"math/big"
	"strings"
)

// Format returns raw / 10^decimals as an exact decimal string with at least one fractional digit, ie. 5 ether in
// wei (decimals 18) is "5.0" and 1 wei is "0.000000000000000001". A nil raw value is zero.
func Format(raw *big.Int, decimals uint8) string {
	if raw == nil || raw.Sign() == 0 {
		return "0.0"
	}

	sign := ""
	abs := new(big.Int).Abs(raw)
	if raw.Sign() < 0 {
		sign = "-"
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, scale, new(big.Int))

	fs := ""
	if decimals > 0 {
		fs = strings.TrimRight(leftPad(frac.String(), int(decimals)), "0")
	}
	if fs == "" {
		fs = "0"
	}

	return sign + whole.String() + "." + fs
}

// Parse is the inverse of Format: it returns the amount in smallest units for a decimal string. Digits beyond the
// network precision are rejected.
func Parse(s string, decimals uint8) (*big.Int, bool) {
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > int(decimals) {
		if strings.TrimRight(frac[decimals:], "0") != "" {
			return nil, false
		}
		frac = frac[:decimals]
	}

	v, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", int(decimals)-len(frac)), 10)

	return v, ok
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}

	return strings.Repeat("0", n-len(s)) + s
}
