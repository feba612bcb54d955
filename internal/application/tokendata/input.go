package tokendata

import (
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

var timeframeLabels = [3]string{"Shortest timeframe", "Medium timeframe", "Longest timeframe"}

// BuildInput maps aggregated provider data onto the engine's input.
// Selections are the short, medium and long timeframes in that order.
func BuildInput(agg *AggregatedTokenData, selections []string) aftershock.Input {
	var in aftershock.Input
	if agg == nil {
		return in
	}

	price, _ := decodeRaw(agg.MoralisPrice).(map[string]any)
	pair := selectPair(agg.DexScreener, pairAddress(agg.MoralisPrice))
	holders, _ := agg.TokenHolders.Decode().(map[string]any)

	in.Overview = aftershock.TokenOverview{
		Price:          lookup(price, "usdPrice"),
		PriceChange24h: lookup(price, "24hrPercentChange"),
		Volume24h:      lookup(pair, "volume", "h24"),
		DexLiquidity:   lookup(pair, "liquidity", "usd"),
		Holders:        lookup(holders, "totalHolders"),
	}

	for i, tf := range selections {
		if i >= len(timeframeLabels) {
			break
		}
		label, timeframe := timeframeLabels[i], tf
		var data any
		if payload, ok := agg.OHLCV[tf]; ok {
			data = payload.Decode()
		}
		in.Timeframes = append(in.Timeframes, aftershock.TimeframeConfig{
			Label:     &label,
			Timeframe: &timeframe,
			Data:      data,
		})
	}
	return in
}

// selectPair picks the DexScreener pair matching the Moralis pair address,
// falling back to the first listed pair
func selectPair(payload Payload, address string) map[string]any {
	var pairs []any
	switch v := payload.Decode().(type) {
	case []any:
		pairs = v
	case map[string]any:
		pairs, _ = v["pairs"].([]any)
	}

	var first map[string]any
	for _, raw := range pairs {
		pair, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if first == nil {
			first = pair
		}
		if address != "" && pair["pairAddress"] == address {
			return pair
		}
	}
	return first
}

func lookup(m map[string]any, path ...string) any {
	var current any = m
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[key]
	}
	return current
}
