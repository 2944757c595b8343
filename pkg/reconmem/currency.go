package reconmem

import (
	"strconv"
	"strings"
)

// MaxDenominator is the largest number of decimal places a currency may have.
const MaxDenominator = 38

// DisplayCurrency renders an amount of the smallest currency unit as a
// decimal, e.g. satoshis with denominator 8. Trailing zeros and a trailing
// decimal point are dropped; the integer part is always present. A
// denominator above MaxDenominator renders as "".
func DisplayCurrency(value uint64, denominator uint32) string {
	if denominator > MaxDenominator {
		return ""
	}

	s := strconv.FormatUint(value, 10)
	if denominator == 0 {
		return s
	}

	d := int(denominator)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}

	split := len(s) - d
	frac := strings.TrimRight(s[split:], "0")
	if frac == "" {
		return s[:split]
	}

	return s[:split] + "." + frac
}
