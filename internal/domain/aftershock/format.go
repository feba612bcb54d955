package aftershock

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

var compactUnits = []struct {
	scale  float64
	suffix string
}{
	{1e3, "K"},
	{1e6, "M"},
	{1e9, "B"},
	{1e12, "T"},
}

// formatCompact renders short-scale compact notation with at most one
// fraction digit: 950 -> "950", 50000 -> "50K", 1234567 -> "1.2M".
func formatCompact(v float64) string {
	abs := math.Abs(v)
	if abs < 1e3 {
		rounded := decimal.NewFromFloat(v).Round(1)
		if rounded.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000)) {
			return formatCompact(rounded.InexactFloat64())
		}
		return rounded.String()
	}

	unit := 0
	for unit+1 < len(compactUnits) && abs >= compactUnits[unit+1].scale {
		unit++
	}
	mantissa := decimal.NewFromFloat(v / compactUnits[unit].scale).Round(1)
	if mantissa.Abs().GreaterThanOrEqual(decimal.NewFromInt(1000)) && unit+1 < len(compactUnits) {
		unit++
		mantissa = decimal.NewFromFloat(v / compactUnits[unit].scale).Round(1)
	}
	return mantissa.String() + compactUnits[unit].suffix
}

func formatUSD(v float64) string {
	if !isFinite(v) {
		return "$0"
	}
	return "$" + formatCompact(v)
}

func formatCount(v float64) string {
	if !isFinite(v) {
		return "0"
	}
	return formatCompact(v)
}

// formatPercent renders a signed one-decimal percentage, "+12.3%"
func formatPercent(v float64) string {
	if !isFinite(v) {
		return "0%"
	}
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return sign + formatFixed(v, 1) + "%"
}

// formatPrice uses six decimals below 1 and four otherwise
func formatPrice(v float64) string {
	if !isFinite(v) {
		return "n/a"
	}
	digits := int32(4)
	if math.Abs(v) < 1 {
		digits = 6
	}
	return formatFixed(v, digits)
}

func formatPricePtr(v *float64) string {
	if v == nil {
		return formatPrice(math.NaN())
	}
	return formatPrice(*v)
}

// formatFixed renders v with a fixed number of places. Non-finite values
// print as "Infinity", "-Infinity" or "NaN".
func formatFixed(v float64, places int32) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// formatPlain renders a threshold the way it was configured, 30 or 12.5
func formatPlain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
