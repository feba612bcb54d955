package indicators

import "math"

// Trend is the direction label produced by the dual-EMA rule
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// TrendConfig holds the EMA lengths and the minimum sample size for a trend call
type TrendConfig struct {
	FastLength int `json:"fast_length"`
	SlowLength int `json:"slow_length"`
	MinSamples int `json:"min_samples"`
}

// DefaultTrendConfig returns the 20/50 EMA configuration with a 50 candle floor
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		FastLength: 20,
		SlowLength: 50,
		MinSamples: 50,
	}
}

// TrendResult represents the result of a trend classification
type TrendResult struct {
	Trend     Trend   `json:"trend"`
	FastEMA   float64 `json:"fast_ema"`
	SlowEMA   float64 `json:"slow_ema"`
	LastClose float64 `json:"last_close"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// CalculateEMA runs an exponential moving average over the whole series.
// The average is seeded with the first value and smoothed left to right with
// k = 2/(length+1). An empty series yields NaN.
func CalculateEMA(values []float64, length int) float64 {
	if len(values) == 0 || length <= 0 {
		return math.NaN()
	}

	k := 2.0 / float64(length+1)
	ema := values[0]
	for i := 1; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
	}
	return ema
}

// ClassifyTrend labels a close series as up, down or neutral.
// Up requires fast > slow and last close > fast; down is the mirror image.
// Series shorter than MinSamples are neutral.
func ClassifyTrend(closes []float64, config TrendConfig) TrendResult {
	if len(closes) < config.MinSamples || len(closes) == 0 {
		return TrendResult{
			Trend:     TrendNeutral,
			FastEMA:   math.NaN(),
			SlowEMA:   math.NaN(),
			LastClose: math.NaN(),
			IsValid:   false,
			DataCount: len(closes),
		}
	}

	fast := CalculateEMA(closes, config.FastLength)
	slow := CalculateEMA(closes, config.SlowLength)
	last := closes[len(closes)-1]

	// Comparisons involving NaN are false in Go, so a NaN average is neutral.
	trend := TrendNeutral
	switch {
	case fast > slow && last > fast:
		trend = TrendUp
	case fast < slow && last < fast:
		trend = TrendDown
	}

	return TrendResult{
		Trend:     trend,
		FastEMA:   fast,
		SlowEMA:   slow,
		LastClose: last,
		IsValid:   true,
		DataCount: len(closes),
	}
}
