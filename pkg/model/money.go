package model

import (
	"regexp"
	"strconv"
	"strings"
)

var moneyRe = regexp.MustCompile(`[-+]?(?:\d+(?:,\d{3})*|\d+)(?:\.\d+)?`)

// ParseMoney parses currency-formatted values like "¥149.64" or
// "1,234.5" as well as bare numbers into a float amount. Unparseable
// input yields 0.
func ParseMoney(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return parseMoneyString(n)
	default:
		return 0
	}
}

func parseMoneyString(s string) float64 {
	m := moneyRe.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}
