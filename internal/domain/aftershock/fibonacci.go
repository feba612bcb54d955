package aftershock

import (
	"math"
	"strconv"
)

// Zone names for the current price's position inside the retracement ladder
const (
	ZoneNone        = "none"
	ZoneMidRange    = "mid-range"
	ZoneUpper       = "upper zone"
	ZoneDeepRetrace = "deep retrace"
)

// Swing is the high/low anchor of a retracement measurement
type Swing struct {
	High float64
	Low  float64
}

// FindSwing returns max(high) and min(low) over the sequence.
// An empty sequence yields -Inf/+Inf, which Valid rejects.
func FindSwing(candles []Candle) Swing {
	swing := Swing{High: math.Inf(-1), Low: math.Inf(1)}
	for _, c := range candles {
		swing.High = math.Max(swing.High, c.High)
		swing.Low = math.Min(swing.Low, c.Low)
	}
	return swing
}

// Valid reports whether the swing can anchor a ladder
func (s Swing) Valid() bool {
	if !isFinite(s.High) || !isFinite(s.Low) {
		return false
	}
	return s.High > s.Low && s.Low > 0
}

// GainPct is the percentage move from swing low to swing high
func (s Swing) GainPct() float64 {
	return (s.High - s.Low) / s.Low * 100
}

// FibLevel is one rung of the retracement ladder
type FibLevel struct {
	Ratio float64
	Price float64
}

// Ladder maps retracement ratios to absolute prices.
// Rungs are ordered from ratio 1 (swing high) down to ratio 0 (swing low).
type Ladder struct {
	levels []FibLevel
}

// BuildLadder computes price(r) = high - (high-low)*r for 1, every ratio, and 0
func BuildLadder(swing Swing, ratios []float64) Ladder {
	span := swing.High - swing.Low
	levels := make([]FibLevel, 0, len(ratios)+2)
	levels = append(levels, FibLevel{Ratio: 1, Price: swing.High})
	for _, r := range ratios {
		levels = append(levels, FibLevel{Ratio: r, Price: swing.High - span*r})
	}
	levels = append(levels, FibLevel{Ratio: 0, Price: swing.Low})
	return Ladder{levels: levels}
}

// Price returns the level for a ratio, or NaN when the ratio is not on the ladder
func (l Ladder) Price(ratio float64) float64 {
	for _, level := range l.levels {
		if level.Ratio == ratio {
			return level.Price
		}
	}
	return math.NaN()
}

// Levels returns the rungs in ladder order
func (l Ladder) Levels() []FibLevel {
	return append([]FibLevel(nil), l.levels...)
}

// Map renders the ladder keyed by the ratio's shortest decimal form
func (l Ladder) Map() map[string]float64 {
	out := make(map[string]float64, len(l.levels))
	for _, level := range l.levels {
		out[ratioKey(level.Ratio)] = level.Price
	}
	return out
}

func ratioKey(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Band is a closed price interval given by two ladder levels in either order
type Band [2]float64

// Contains checks lo <= v <= hi regardless of bound order.
// Non-finite bounds or value never match.
func (b Band) Contains(v float64) bool {
	if !isFinite(b[0]) || !isFinite(b[1]) {
		return false
	}
	lo := math.Min(b[0], b[1])
	hi := math.Max(b[0], b[1])
	return v >= lo && v <= hi
}

type zoneBand struct {
	name string
	band Band
}

func (l Ladder) zoneBands() []zoneBand {
	return []zoneBand{
		{ZoneMidRange, Band{l.Price(0.5), l.Price(0.382)}},
		{ZoneUpper, Band{l.Price(0.382), l.Price(0.236)}},
		{ZoneDeepRetrace, Band{l.Price(0.702), l.Price(0.618)}},
	}
}

// ClassifyZone returns the first zone containing price, checked mid-range,
// upper zone, then deep retrace. A nil price is always ZoneNone.
func (l Ladder) ClassifyZone(price *float64) (string, Band) {
	if price == nil {
		return ZoneNone, Band{math.NaN(), math.NaN()}
	}
	for _, zb := range l.zoneBands() {
		if zb.band.Contains(*price) {
			return zb.name, zb.band
		}
	}
	return ZoneNone, Band{math.NaN(), math.NaN()}
}

// FibLevelDetail reports whether the current price has cleared one rung
type FibLevelDetail struct {
	Level   float64 `json:"level"`
	Price   float64 `json:"price"`
	IsValid *bool   `json:"isValid"`
}

// LevelDetails evaluates every rung against the current price.
// For ratio 1 the price must sit at or below the level; for all others at or above.
func (l Ladder) LevelDetails(price *float64) []FibLevelDetail {
	details := make([]FibLevelDetail, 0, len(l.levels))
	for _, level := range l.levels {
		detail := FibLevelDetail{Level: level.Ratio, Price: level.Price}
		if price != nil && isFinite(level.Price) {
			var ok bool
			if level.Ratio == 1 {
				ok = *price <= level.Price
			} else {
				ok = *price >= level.Price
			}
			detail.IsValid = &ok
		}
		details = append(details, detail)
	}
	return details
}
