package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMinorUnits converts a decimal amount ("100", "100.5", "100.0000") into minor
// units with two decimals. Extra fraction digits are rounded half up.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("parse amount %q: invalid fraction", s)
		}
	}
	frac += "000"
	cents := int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	v := units*100 + cents
	if neg {
		v = -v
	}
	return v, nil
}

// FormatMinorUnits renders minor units as a two decimal string.
func FormatMinorUnits(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// FormatAmount renders minor units with the currency code, e.g. "100.00 EUR".
func FormatAmount(v int64, currency string) string {
	if currency == "" {
		return FormatMinorUnits(v)
	}
	return FormatMinorUnits(v) + " " + currency
}
