package aftershock

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Thresholds holds the minimums each gate check is measured against
type Thresholds struct {
	MinLiquidity   float64 `json:"minLiquidity" yaml:"min_liquidity"`
	MinVolume      float64 `json:"minVolume" yaml:"min_volume"`
	MinPriceChange float64 `json:"minPriceChange" yaml:"min_price_change"`
	MinHolders     float64 `json:"minHolders" yaml:"min_holders"`
}

// Overrides converts a complete threshold set back into an override record
func (t Thresholds) Overrides() ThresholdOverrides {
	return ThresholdOverrides{
		MinLiquidity:   t.MinLiquidity,
		MinVolume:      t.MinVolume,
		MinPriceChange: t.MinPriceChange,
		MinHolders:     t.MinHolders,
	}
}

// ThresholdOverrides is a partial, untrusted threshold record.
// Each field may be nil, a number, or a numeric string.
type ThresholdOverrides struct {
	MinLiquidity   any `json:"minLiquidity,omitempty"`
	MinVolume      any `json:"minVolume,omitempty"`
	MinPriceChange any `json:"minPriceChange,omitempty"`
	MinHolders     any `json:"minHolders,omitempty"`
}

// ResolveThresholds fills every field of the override record, substituting the
// matching default for anything absent, empty, non-numeric, non-finite or negative.
func ResolveThresholds(overrides ThresholdOverrides, defaults Thresholds) Thresholds {
	return Thresholds{
		MinLiquidity:   coerceThreshold(overrides.MinLiquidity, defaults.MinLiquidity),
		MinVolume:      coerceThreshold(overrides.MinVolume, defaults.MinVolume),
		MinPriceChange: coerceThreshold(overrides.MinPriceChange, defaults.MinPriceChange),
		MinHolders:     coerceThreshold(overrides.MinHolders, defaults.MinHolders),
	}
}

func coerceThreshold(value any, fallback float64) float64 {
	var n float64
	switch v := value.(type) {
	case nil:
		return fallback
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fallback
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fallback
		}
		n = parsed
	case *float64:
		if v == nil {
			return fallback
		}
		n = *v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return fallback
		}
		n = parsed
	default:
		f, ok := numericValue(value)
		if !ok {
			return fallback
		}
		n = f
	}

	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return fallback
	}
	return n
}
