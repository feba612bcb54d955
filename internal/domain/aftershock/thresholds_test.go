package aftershock

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveThresholds_Defaults(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), ResolveThresholds(ThresholdOverrides{}, DefaultThresholds()))
}

func TestResolveThresholds_Coercion(t *testing.T) {
	nan := math.NaN()
	seven := 7.0

	tests := []struct {
		name     string
		value    any
		expected float64
	}{
		{"nil", nil, 50000},
		{"number", 70000.0, 70000},
		{"int", 12, 12},
		{"zero is kept", 0, 0},
		{"numeric string", "12.5", 12.5},
		{"padded string", " 7 ", 7},
		{"empty string", "", 50000},
		{"whitespace string", "   ", 50000},
		{"non numeric string", "abc", 50000},
		{"negative", -1, 50000},
		{"negative string", "-5", 50000},
		{"NaN", nan, 50000},
		{"NaN string", "NaN", 50000},
		{"infinity", math.Inf(1), 50000},
		{"json number", json.Number("42"), 42},
		{"float pointer", &seven, 7},
		{"nil float pointer", (*float64)(nil), 50000},
		{"bool", true, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := ResolveThresholds(ThresholdOverrides{MinLiquidity: tt.value}, DefaultThresholds())
			assert.Equal(t, tt.expected, resolved.MinLiquidity)
			assert.Equal(t, 100000.0, resolved.MinVolume)
		})
	}
}

func TestResolveThresholds_AllFields(t *testing.T) {
	resolved := ResolveThresholds(ThresholdOverrides{
		MinLiquidity:   "1000",
		MinVolume:      2000,
		MinPriceChange: "15",
		MinHolders:     10.0,
	}, DefaultThresholds())

	assert.Equal(t, Thresholds{MinLiquidity: 1000, MinVolume: 2000, MinPriceChange: 15, MinHolders: 10}, resolved)
}

func TestThresholds_OverridesRoundTrip(t *testing.T) {
	custom := Thresholds{MinLiquidity: 1, MinVolume: 2, MinPriceChange: 3, MinHolders: 4}
	assert.Equal(t, custom, ResolveThresholds(custom.Overrides(), DefaultThresholds()))
}
