package aftershock

import "github.com/sawpanic/aftershock/internal/domain/indicators"

// Verdict labels
const (
	VerdictNoTrade         = "No Trade"
	VerdictHighProbability = "Valid High Probability"
	VerdictLowProbability  = "Valid Low Probability"
	VerdictAvoid           = "Avoid / Not Valid"
)

// Reason tags
const (
	TagData                = "DATA"
	TagLiquidityOK         = "LIQ_OK"
	TagLiquidityLow        = "LIQ_LOW"
	TagVolumeOK            = "VOL_OK"
	TagVolumeLow           = "VOL_LOW"
	TagImpulseStrong       = "IMPULSE_STRONG"
	TagImpulseWeak         = "IMPULSE_WEAK"
	TagHoldersOK           = "HOLDERS_OK"
	TagHoldersLow          = "HOLDERS_LOW"
	TagImpulseRange        = "IMPULSE_RANGE"
	TagImpulseRangeInvalid = "IMPULSE_RANGE_INVALID"
	TagZoneOK              = "ZONE_OK"
	TagZoneNone            = "ZONE_NONE"
	TagMTFPrefix           = "MTF_"
	TagReactionStrong      = "REACTION_STRONG"
	TagReactionWeak        = "REACTION_WEAK"
	TagReactionFail        = "REACTION_FAIL"
)

// Score contributions
const (
	MaxSetupScore = 75

	liquidityPoints = 10
	volumePoints    = 10
	impulsePoints   = 10
	holdersPoints   = 5
	zonePoints      = 15
	mtfHighPoints   = 15
	mtfMediumPoints = 8
	mtfMaxPoints    = 15
	reactionStrong  = 10
	reactionWeak    = 5
	reactionMax     = 10

	highProbabilityScore = 70
	lowProbabilityScore  = 50

	strongWickRatio = 1.5
	weakWickRatio   = 1.0
)

// Params holds the lookup tables the engine scores against.
// Engines copy their Params on construction, so callers may reuse a value freely.
type Params struct {
	Defaults      Thresholds             `json:"defaults" yaml:"defaults"`
	FibRatios     []float64              `json:"fib_ratios" yaml:"fib_ratios"`
	Trend         indicators.TrendConfig `json:"trend" yaml:"trend"`
	MaxSetupScore int                    `json:"max_setup_score" yaml:"max_setup_score"`
}

// DefaultThresholds returns the built-in gate minimums
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLiquidity:   50000,
		MinVolume:      100000,
		MinPriceChange: 30,
		MinHolders:     50,
	}
}

// DefaultParams returns a fresh copy of the production tables
func DefaultParams() Params {
	return Params{
		Defaults:      DefaultThresholds(),
		FibRatios:     []float64{0.702, 0.618, 0.5, 0.382, 0.236},
		Trend:         indicators.DefaultTrendConfig(),
		MaxSetupScore: MaxSetupScore,
	}
}

func (p Params) clone() Params {
	out := p
	out.FibRatios = append([]float64(nil), p.FibRatios...)
	if len(out.FibRatios) == 0 {
		out.FibRatios = DefaultParams().FibRatios
	}
	if out.MaxSetupScore <= 0 {
		out.MaxSetupScore = MaxSetupScore
	}
	if out.Trend.FastLength <= 0 || out.Trend.SlowLength <= 0 {
		out.Trend = indicators.DefaultTrendConfig()
	}
	if p.Defaults == (Thresholds{}) {
		out.Defaults = DefaultThresholds()
	} else {
		out.Defaults = ResolveThresholds(p.Defaults.Overrides(), DefaultThresholds())
	}
	return out
}
