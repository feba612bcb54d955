// Package aftershock scores a token's short-term trade setup from a price/volume
// snapshot and three candle series of increasing granularity.
//
// The engine is a pure function of its Input: it performs no I/O, keeps no
// state between calls and never fails. Missing or malformed data degrades to
// NaN, empty sequences, the "none" zone or a neutral trend, and finally to a
// "No Trade" or "Avoid / Not Valid" verdict.
package aftershock

import (
	"strings"

	"github.com/sawpanic/aftershock/internal/domain/indicators"
)

type timeframeSlot struct {
	fallbackLabel string
	shortName     string
}

var timeframeSlots = [3]timeframeSlot{
	{fallbackLabel: "Shortest timeframe", shortName: "10m"},
	{fallbackLabel: "Medium timeframe", shortName: "30m"},
	{fallbackLabel: "Longest timeframe", shortName: "1h"},
}

// Engine scores inputs against a fixed set of Params
type Engine struct {
	params Params
}

// NewEngine creates an engine with its own copy of params
func NewEngine(params Params) *Engine {
	return &Engine{params: params.clone()}
}

// Params returns a copy of the engine's tables
func (e *Engine) Params() Params {
	return e.params.clone()
}

// Analyze runs the engine with DefaultParams
func Analyze(in Input) Result {
	return NewEngine(DefaultParams()).Analyze(in)
}

type reasonLog struct {
	reasons []Reason
	score   int
}

func (l *reasonLog) scored(tag, detail string, points, maxPoints int) {
	l.score += points
	l.reasons = append(l.reasons, Reason{Tag: tag, Detail: detail, Points: &points, MaxPoints: &maxPoints})
}

func (l *reasonLog) info(tag, detail string) {
	l.reasons = append(l.reasons, Reason{Tag: tag, Detail: detail})
}

type overviewValues struct {
	price     float64
	volume24h float64
	change24h float64
	holders   float64
	liquidity float64
}

// Analyze scores one token
func (e *Engine) Analyze(in Input) Result {
	thresholds := ResolveThresholds(in.Thresholds, e.params.Defaults)

	ov := overviewValues{
		price:     ToNumber(in.Overview.Price),
		volume24h: ToNumber(in.Overview.Volume24h),
		change24h: ToNumber(in.Overview.PriceChange24h),
		holders:   ToNumber(in.Overview.Holders),
		liquidity: ToNumber(in.Overview.DexLiquidity),
	}

	var series [3][]Candle
	var frames [3]TimeframeEvidence
	for i, slot := range timeframeSlots {
		cfg := in.Timeframes.at(i)
		series[i] = ExtractCandles(cfg.Data)
		label := slot.fallbackLabel
		if cfg.Label != nil {
			label = *cfg.Label
		}
		frames[i] = TimeframeEvidence{Label: label, Timeframe: cfg.Timeframe, Candles: series[i]}
	}
	short, medium, long := series[0], series[1], series[2]

	evidence := Evidence{
		CurrentPrice: nullable(ov.price),
		Liquidity:    nullable(ov.liquidity),
		Volume24h:    nullable(ov.volume24h),
		Holders:      nullable(ov.holders),
		Change24h:    nullable(ov.change24h),
		Thresholds:   thresholds,
		OHLCV:        TimeframeSet{Short: frames[0], Medium: frames[1], Long: frames[2]},
	}

	if len(short) == 0 || len(medium) == 0 || len(long) == 0 {
		points, maxPoints := 0, e.params.MaxSetupScore
		return Result{
			Verdict:       VerdictNoTrade,
			SetupScore:    0,
			SetupScoreMax: e.params.MaxSetupScore,
			Reasons: []Reason{{
				Tag:       TagData,
				Detail:    "Missing timeframe data",
				Points:    &points,
				MaxPoints: &maxPoints,
			}},
			Evidence: evidence,
		}
	}

	rl := &reasonLog{}
	scoreGates(rl, ov, thresholds)

	swing := FindSwing(long)
	evidence.SwingHigh = nullable(swing.High)
	evidence.SwingLow = nullable(swing.Low)
	if !swing.Valid() {
		rl.info(TagImpulseRangeInvalid, "Not enough data to anchor Fibonacci swing on the long timeframe")
		return Result{
			Verdict:       VerdictNoTrade,
			SetupScore:    rl.score,
			SetupScoreMax: e.params.MaxSetupScore,
			Reasons:       rl.reasons,
			Evidence:      evidence,
		}
	}

	gain := swing.GainPct()
	rl.info(TagImpulseRange, "Low "+formatPrice(swing.Low)+" → High "+formatPrice(swing.High)+" ("+formatPercent(gain)+")")

	ladder := BuildLadder(swing, e.params.FibRatios)
	price := nullable(ov.price)
	zone, band := ladder.ClassifyZone(price)
	if zone != ZoneNone {
		rl.scored(TagZoneOK, "Price "+formatPricePtr(price)+" in "+zone+" ("+formatPrice(band[0])+"–"+formatPrice(band[1])+")", zonePoints, zonePoints)
	} else {
		rl.scored(TagZoneNone, "Price "+formatPricePtr(price)+" outside 0.702–0.236 retracement band", 0, zonePoints)
	}

	trends := TrendSet{
		Short: string(indicators.ClassifyTrend(closes(short), e.params.Trend).Trend),
		Mid:   string(indicators.ClassifyTrend(closes(medium), e.params.Trend).Trend),
		Long:  string(indicators.ClassifyTrend(closes(long), e.params.Trend).Trend),
	}
	scoreTrends(rl, trends)

	reaction := DetectReaction(short, ladder)
	switch reaction.Status {
	case ReactionStrong:
		rl.scored(TagReactionStrong, reaction.Detail, reactionStrong, reactionMax)
	case ReactionWeak:
		rl.scored(TagReactionWeak, reaction.Detail, reactionWeak, reactionMax)
	default:
		rl.scored(TagReactionFail, reaction.Detail, 0, reactionMax)
	}

	evidence.Fib = ladder.Map()
	evidence.FibLevels = ladder.LevelDetails(price)
	evidence.ImpulseGainPct = nullable(gain)
	evidence.Zone = zone
	evidence.MTF = &trends
	evidence.Reaction = &reaction
	evidence.ImpulseSource = &ImpulseSource{
		Label:     frames[2].Label,
		Timeframe: frames[2].Timeframe,
		Candles:   len(long),
	}

	return Result{
		Verdict:       VerdictForScore(rl.score),
		SetupScore:    rl.score,
		SetupScoreMax: e.params.MaxSetupScore,
		Reasons:       rl.reasons,
		Evidence:      evidence,
	}
}

// VerdictForScore bands a completed run's score
func VerdictForScore(score int) string {
	switch {
	case score >= highProbabilityScore:
		return VerdictHighProbability
	case score >= lowProbabilityScore:
		return VerdictLowProbability
	default:
		return VerdictAvoid
	}
}

func scoreGates(rl *reasonLog, ov overviewValues, t Thresholds) {
	if atLeast(ov.liquidity, t.MinLiquidity) {
		rl.scored(TagLiquidityOK, "Liquidity "+formatUSD(ov.liquidity)+" ≥ "+formatUSD(t.MinLiquidity), liquidityPoints, liquidityPoints)
	} else {
		rl.scored(TagLiquidityLow, "Liquidity "+formatUSD(ov.liquidity)+" < "+formatUSD(t.MinLiquidity), 0, liquidityPoints)
	}

	if atLeast(ov.volume24h, t.MinVolume) {
		rl.scored(TagVolumeOK, "24h Volume "+formatUSD(ov.volume24h)+" ≥ "+formatUSD(t.MinVolume), volumePoints, volumePoints)
	} else {
		rl.scored(TagVolumeLow, "24h Volume "+formatUSD(ov.volume24h)+" < "+formatUSD(t.MinVolume), 0, volumePoints)
	}

	if atLeast(ov.change24h, t.MinPriceChange) {
		rl.scored(TagImpulseStrong, "24h price change "+formatPercent(ov.change24h)+" ≥ "+formatPlain(t.MinPriceChange)+"%", impulsePoints, impulsePoints)
	} else {
		rl.scored(TagImpulseWeak, "24h price change "+formatPercent(ov.change24h)+" < "+formatPlain(t.MinPriceChange)+"%", 0, impulsePoints)
	}

	if atLeast(ov.holders, t.MinHolders) {
		rl.scored(TagHoldersOK, formatCount(ov.holders)+" holders ≥ "+formatCount(t.MinHolders), holdersPoints, holdersPoints)
	} else {
		rl.scored(TagHoldersLow, formatCount(ov.holders)+" holders < "+formatCount(t.MinHolders), 0, holdersPoints)
	}
}

// scoreTrends grades trend alignment. The detail always names the slots
// 10m/30m/1h, whatever timeframes were actually selected.
func scoreTrends(rl *reasonLog, trends TrendSet) {
	up := 0
	for _, t := range []string{trends.Short, trends.Mid, trends.Long} {
		if t == string(indicators.TrendUp) {
			up++
		}
	}

	tier, points := "low", 0
	switch up {
	case 3:
		tier, points = "high", mtfHighPoints
	case 2:
		tier, points = "medium", mtfMediumPoints
	}

	labels := [3]string{trends.Short, trends.Mid, trends.Long}
	parts := make([]string, 0, 3)
	for i, slot := range timeframeSlots {
		parts = append(parts, slot.shortName+"="+labels[i])
	}

	rl.scored(TagMTFPrefix+strings.ToUpper(tier), "Trends: "+strings.Join(parts, ", "), points, mtfMaxPoints)
}

func closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
