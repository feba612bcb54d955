package aftershock

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Candle is one normalized OHLC bar. All four fields are finite.
type Candle struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

func (c Candle) valid() bool {
	return isFinite(c.Open) && isFinite(c.High) && isFinite(c.Low) && isFinite(c.Close)
}

// ToNumber coerces a loosely typed value into a float64.
// Strings are stripped of commas, currency symbols, percent signs, underscores
// and whitespace before parsing. Anything that does not yield a finite number
// comes back as NaN.
func ToNumber(value any) float64 {
	switch v := value.(type) {
	case string:
		return parseNumericString(v)
	case json.Number:
		return parseNumericString(v.String())
	case *float64:
		if v == nil {
			return math.NaN()
		}
		return finiteOrNaN(*v)
	}

	if f, ok := numericValue(value); ok {
		return finiteOrNaN(f)
	}
	return math.NaN()
}

func parseNumericString(s string) float64 {
	if strings.TrimSpace(s) == "" {
		return math.NaN()
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == ',' || r == '$' || r == '_' || r == '%':
			return -1
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return finiteOrNaN(parsed)
}

// numericValue unwraps Go's built-in numeric kinds
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrNaN(f float64) float64 {
	if isFinite(f) {
		return f
	}
	return math.NaN()
}

// atLeast reports v >= min. Any comparison with a NaN operand is false, so
// missing data always fails a minimum.
func atLeast(v, min float64) bool {
	return v >= min
}

// nullable maps non-finite values to nil for JSON output
func nullable(f float64) *float64 {
	if !isFinite(f) {
		return nil
	}
	return &f
}

// NormalizeCandle converts a raw candle into canonical form.
// The second return is false when any OHLC field is not a finite number.
func NormalizeCandle(raw any) (Candle, bool) {
	var c Candle
	switch v := raw.(type) {
	case Candle:
		c = v
	case *Candle:
		if v == nil {
			return Candle{}, false
		}
		c = *v
	case map[string]any:
		c = Candle{
			Open:  ToNumber(v["open"]),
			High:  ToNumber(v["high"]),
			Low:   ToNumber(v["low"]),
			Close: ToNumber(v["close"]),
		}
	default:
		return Candle{}, false
	}

	if !c.valid() {
		return Candle{}, false
	}
	return c, true
}

// ExtractCandles pulls a normalized candle sequence out of a timeframe payload.
// It accepts a bare array, {result: [...]} or an unrecognized shape, which
// yields an empty sequence. Invalid candles are dropped and order is kept.
func ExtractCandles(data any) []Candle {
	if m, ok := data.(map[string]any); ok {
		if result, exists := m["result"]; exists && result != nil {
			data = result
		}
	}

	out := []Candle{}
	switch v := data.(type) {
	case []Candle:
		for _, raw := range v {
			if c, ok := NormalizeCandle(raw); ok {
				out = append(out, c)
			}
		}
	case []any:
		for _, raw := range v {
			if c, ok := NormalizeCandle(raw); ok {
				out = append(out, c)
			}
		}
	case []map[string]any:
		for _, raw := range v {
			if c, ok := NormalizeCandle(raw); ok {
				out = append(out, c)
			}
		}
	}
	return out
}
