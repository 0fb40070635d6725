package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var currencyStrip = regexp.MustCompile(`[₹$€£¥,\s]`)

// ParseCurrency parses free-text money such as "₹1,50,000", "$15,000.50" or
// "2 lakh". Currency symbols, commas and whitespace are dropped, then "lakh"
// and "cr" are expanded textually into zeros. Anything that still does not
// parse, or parses to a non-finite value, is absent.
func ParseCurrency(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = currencyStrip.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "lakh", "00000")
	s = strings.ReplaceAll(s, "cr", "0000000")
	return parseFinite(s)
}

// parsePlainNumber accepts a decimal number with optional thousands commas.
func parsePlainNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	return parseFinite(s)
}

func parseFinite(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
