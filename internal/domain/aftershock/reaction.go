package aftershock

import "math"

// ReactionStatus grades the wick absorption seen on the latest candle
type ReactionStatus string

const (
	ReactionStrong ReactionStatus = "strong"
	ReactionWeak   ReactionStatus = "weak"
	ReactionFail   ReactionStatus = "fail"
)

// machine epsilon for float64, used when the candle body is zero
const bodyEpsilon = 2.220446049250313e-16

// Reaction is the outcome of the absorption check
type Reaction struct {
	Status    ReactionStatus `json:"status"`
	Detail    string         `json:"detail"`
	WickRatio *float64       `json:"wickRatio"`
}

// DetectReaction inspects the last candle of the sequence against the
// 0.618-0.382 band. An up candle measures its lower wick (buy-side absorption),
// any other candle its upper wick.
func DetectReaction(candles []Candle, ladder Ladder) Reaction {
	if len(candles) == 0 {
		return Reaction{Status: ReactionFail, Detail: "No candles to assess reaction"}
	}
	last := candles[len(candles)-1]

	zoneLow := ladder.Price(0.618)
	zoneHigh := ladder.Price(0.382)
	if !isFinite(zoneLow) || !isFinite(zoneHigh) {
		return Reaction{Status: ReactionFail, Detail: "Fib levels unavailable for reaction check"}
	}

	lower := math.Min(zoneLow, zoneHigh)
	upper := math.Max(zoneLow, zoneHigh)
	if last.Low > upper || last.High < lower {
		return Reaction{Status: ReactionFail, Detail: "Latest candle is outside the 0.618–0.382 band"}
	}

	wick := last.High
	if last.Close > last.Open {
		wick = last.Low
	}
	body := math.Abs(last.Close - last.Open)
	if body == 0 {
		body = bodyEpsilon
	}
	ratio := math.Abs((last.Close - wick) / body)

	switch {
	case ratio > strongWickRatio:
		return Reaction{
			Status:    ReactionStrong,
			Detail:    "Strong wick absorption ratio " + formatFixed(ratio, 2),
			WickRatio: nullable(ratio),
		}
	case ratio > weakWickRatio:
		return Reaction{
			Status:    ReactionWeak,
			Detail:    "Moderate wick ratio " + formatFixed(ratio, 2),
			WickRatio: nullable(ratio),
		}
	}
	return Reaction{
		Status:    ReactionFail,
		Detail:    "No absorption signal detected near Fib support",
		WickRatio: nullable(ratio),
	}
}
