package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestCalculateEMA_SeededWithFirstValue(t *testing.T) {
	assert.Equal(t, 5.0, CalculateEMA([]float64{5}, 20))

	// k = 2/3 for length 2: 1 -> 2*2/3 + 1/3 = 5/3
	assert.InDelta(t, 5.0/3.0, CalculateEMA([]float64{1, 2}, 2), 1e-12)
}

func TestCalculateEMA_Empty(t *testing.T) {
	assert.True(t, math.IsNaN(CalculateEMA(nil, 20)))
	assert.True(t, math.IsNaN(CalculateEMA([]float64{1, 2}, 0)))
}

func TestCalculateEMA_ConstantSeries(t *testing.T) {
	flat := series(80, func(int) float64 { return 1.25 })
	assert.InDelta(t, 1.25, CalculateEMA(flat, 20), 1e-12)
	assert.InDelta(t, 1.25, CalculateEMA(flat, 50), 1e-12)
}

func TestClassifyTrend(t *testing.T) {
	config := DefaultTrendConfig()

	tests := []struct {
		name   string
		closes []float64
		want   Trend
	}{
		{"rising", series(60, func(i int) float64 { return 1 + float64(i)*0.01 }), TrendUp},
		{"falling", series(60, func(i int) float64 { return 2 - float64(i)*0.01 }), TrendDown},
		{"flat", series(60, func(int) float64 { return 1 }), TrendNeutral},
		{"too short", series(49, func(i int) float64 { return 1 + float64(i) }), TrendNeutral},
		{"exactly minimum", series(50, func(i int) float64 { return 1 + float64(i) }), TrendUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyTrend(tt.closes, config)
			assert.Equal(t, tt.want, result.Trend)
			assert.Equal(t, len(tt.closes), result.DataCount)
		})
	}
}

func TestClassifyTrend_InsufficientDataIsInvalid(t *testing.T) {
	result := ClassifyTrend(series(10, func(i int) float64 { return float64(i) }), DefaultTrendConfig())
	assert.False(t, result.IsValid)
	assert.True(t, math.IsNaN(result.FastEMA))
}

func TestClassifyTrend_PullbackInUptrendIsNeutral(t *testing.T) {
	closes := series(60, func(i int) float64 { return 1 + float64(i)*0.01 })
	closes[len(closes)-1] = 1.0

	result := ClassifyTrend(closes, DefaultTrendConfig())
	assert.Equal(t, TrendNeutral, result.Trend)
	assert.Greater(t, result.FastEMA, result.SlowEMA)
}
