package utils

import (
	"strconv"
	"strings"
)

// ParseAmount normalizes a currency value of unknown provenance to a
// float64. Imported and hand-edited records sometimes carry amounts as
// strings with currency symbols, thousands separators, or comma decimal
// marks; decoding must not blow up or silently skew on those rows.
// Anything unparseable comes back as 0.
func ParseAmount(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return parseAmountString(n)
	case nil:
		return 0
	}
	return 0
}

func parseAmountString(s string) float64 {
	cleaned := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			cleaned = append(cleaned, r)
		}
	}
	c := string(cleaned)
	if c == "" {
		return 0
	}

	lastDot := strings.LastIndex(c, ".")
	lastComma := strings.LastIndex(c, ",")

	switch {
	case lastComma > lastDot:
		// Comma is the decimal mark ("1.250,50" or "50,5")
		c = strings.ReplaceAll(c, ".", "")
		c = strings.Replace(c, ",", ".", 1)
	default:
		// Dot is the decimal mark (or there is none); commas are grouping
		c = strings.ReplaceAll(c, ",", "")
	}

	f, err := strconv.ParseFloat(c, 64)
	if err != nil {
		return 0
	}
	return f
}
