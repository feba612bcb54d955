package aftershock

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectReaction(t *testing.T) {
	// band is 0.882 - 1.118
	ladder := BuildLadder(Swing{High: 1.5, Low: 0.5}, DefaultParams().FibRatios)

	tests := []struct {
		name   string
		candle Candle
		status ReactionStatus
		detail string
	}{
		{"strong lower wick", Candle{Open: 1.0, High: 1.03, Low: 0.95, Close: 1.02}, ReactionStrong, "Strong wick absorption ratio 3.50"},
		{"moderate lower wick", Candle{Open: 1.0, High: 1.03, Low: 0.995, Close: 1.02}, ReactionWeak, "Moderate wick ratio 1.25"},
		{"ratio of exactly one", Candle{Open: 1.0, High: 1.03, Low: 1.0, Close: 1.02}, ReactionFail, "No absorption signal detected near Fib support"},
		{"down candle upper wick", Candle{Open: 1.05, High: 1.1, Low: 0.99, Close: 1.0}, ReactionStrong, "Strong wick absorption ratio 2.00"},
		{"above band", Candle{Open: 1.2, High: 1.3, Low: 1.2, Close: 1.25}, ReactionFail, "Latest candle is outside the 0.618–0.382 band"},
		{"below band", Candle{Open: 0.8, High: 0.85, Low: 0.7, Close: 0.82}, ReactionFail, "Latest candle is outside the 0.618–0.382 band"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reaction := DetectReaction([]Candle{{1, 1, 1, 1}, tt.candle}, ladder)
			assert.Equal(t, tt.status, reaction.Status)
			assert.Equal(t, tt.detail, reaction.Detail)
		})
	}
}

func TestDetectReaction_ZeroBody(t *testing.T) {
	ladder := BuildLadder(Swing{High: 1.5, Low: 0.5}, DefaultParams().FibRatios)

	flat := DetectReaction([]Candle{{Open: 1, High: 1, Low: 1, Close: 1}}, ladder)
	assert.Equal(t, ReactionFail, flat.Status)
	require.NotNil(t, flat.WickRatio)
	assert.Equal(t, 0.0, *flat.WickRatio)

	doji := DetectReaction([]Candle{{Open: 1, High: 1.01, Low: 0.99, Close: 1}}, ladder)
	assert.Equal(t, ReactionStrong, doji.Status)
}

func TestDetectReaction_UnboundedWickRatio(t *testing.T) {
	ladder := BuildLadder(Swing{High: 1.5, Low: 0.5}, DefaultParams().FibRatios)

	// finite OHLC with a zero body overflows the ratio
	reaction := DetectReaction([]Candle{{Open: 1, High: 1e300, Low: 1, Close: 1}}, ladder)
	assert.Equal(t, ReactionStrong, reaction.Status)
	assert.Equal(t, "Strong wick absorption ratio Infinity", reaction.Detail)
	assert.Nil(t, reaction.WickRatio)
}

func TestAnalyze_UnboundedWickRatio(t *testing.T) {
	short := flatCandles(60, 1.0)
	short[59] = Candle{Open: 1, High: 1e300, Low: 1, Close: 1}
	in := scenarioInput()
	in.Timeframes[0] = TimeframeConfig{Data: short}

	var result Result
	require.NotPanics(t, func() { result = Analyze(in) })

	reason, ok := result.Reason(TagReactionStrong)
	require.True(t, ok)
	assert.Equal(t, "Strong wick absorption ratio Infinity", reason.Detail)

	body, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"wickRatio":null`)
}

func TestFormatFixed_NonFinite(t *testing.T) {
	assert.Equal(t, "Infinity", formatFixed(math.Inf(1), 2))
	assert.Equal(t, "-Infinity", formatFixed(math.Inf(-1), 2))
	assert.Equal(t, "NaN", formatFixed(math.NaN(), 1))
	assert.Equal(t, "1.50", formatFixed(1.5, 2))
}

func TestDetectReaction_Unavailable(t *testing.T) {
	ladder := BuildLadder(Swing{High: 1.5, Low: 0.5}, DefaultParams().FibRatios)

	empty := DetectReaction(nil, ladder)
	assert.Equal(t, ReactionFail, empty.Status)
	assert.Equal(t, "No candles to assess reaction", empty.Detail)
	assert.Nil(t, empty.WickRatio)

	partial := BuildLadder(Swing{High: 1.5, Low: 0.5}, []float64{0.5})
	missing := DetectReaction([]Candle{{1, 1, 1, 1}}, partial)
	assert.Equal(t, ReactionFail, missing.Status)
	assert.Equal(t, "Fib levels unavailable for reaction check", missing.Detail)
}
