package aftershock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "0"},
		{950, "950"},
		{12.34, "12.3"},
		{50000, "50K"},
		{100000, "100K"},
		{1500, "1.5K"},
		{-1500, "-1.5K"},
		{1234567, "1.2M"},
		{999950, "1M"},
		{999.96, "1K"},
		{2.5e9, "2.5B"},
		{3e12, "3T"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, formatCompact(tt.value), "value %v", tt.value)
	}
}

func TestFormatters(t *testing.T) {
	nan := math.NaN()

	assert.Equal(t, "$60K", formatUSD(60000))
	assert.Equal(t, "$0", formatUSD(nan))
	assert.Equal(t, "0", formatCount(nan))

	assert.Equal(t, "+40.0%", formatPercent(40))
	assert.Equal(t, "-12.3%", formatPercent(-12.34))
	assert.Equal(t, "0.0%", formatPercent(0))
	assert.Equal(t, "0%", formatPercent(nan))

	assert.Equal(t, "1.0000", formatPrice(1))
	assert.Equal(t, "0.500000", formatPrice(0.5))
	assert.Equal(t, "64250.1235", formatPrice(64250.12345))
	assert.Equal(t, "n/a", formatPrice(nan))
	assert.Equal(t, "n/a", formatPricePtr(nil))

	assert.Equal(t, "30", formatPlain(30))
	assert.Equal(t, "12.5", formatPlain(12.5))
}
