package aftershock

import (
	"bytes"
	"encoding/json"
)

// TokenOverview is a point-in-time snapshot of a token. Fields may hold
// numbers, numeric strings or nothing at all.
type TokenOverview struct {
	Price          any `json:"price,omitempty"`
	Volume24h      any `json:"volume24h,omitempty"`
	PriceChange24h any `json:"priceChange24h,omitempty"`
	Holders        any `json:"holders,omitempty"`
	DexLiquidity   any `json:"dexLiquidity,omitempty"`
}

// UnmarshalJSON accepts the overview object itself or a {"value": {...}} wrapper.
// Shapes that are not objects decode to an empty overview.
func (o *TokenOverview) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		*o = TokenOverview{}
		return nil
	}
	if inner, ok := fields["value"].(map[string]any); ok {
		fields = inner
	}
	*o = TokenOverview{
		Price:          fields["price"],
		Volume24h:      fields["volume24h"],
		PriceChange24h: fields["priceChange24h"],
		Holders:        fields["holders"],
		DexLiquidity:   fields["dexLiquidity"],
	}
	return nil
}

// TimeframeConfig wraps one raw candle payload plus its descriptive metadata.
// Data may be a candle slice, {result: [...]}, or an {error: "..."} placeholder.
type TimeframeConfig struct {
	Label     *string `json:"label,omitempty"`
	Timeframe *string `json:"timeframe,omitempty"`
	Data      any     `json:"data,omitempty"`
}

// UnmarshalJSON accepts {label, timeframe, data} or a bare candle array
func (c *TimeframeConfig) UnmarshalJSON(data []byte) error {
	*c = TimeframeConfig{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var candles []any
		if err := json.Unmarshal(trimmed, &candles); err == nil {
			c.Data = candles
		}
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}
	if label, ok := fields["label"].(string); ok {
		c.Label = &label
	}
	if timeframe, ok := fields["timeframe"].(string); ok {
		c.Timeframe = &timeframe
	}
	c.Data = fields["data"]
	return nil
}

// Timeframes holds the positional short, medium and long timeframe configs
type Timeframes []TimeframeConfig

// UnmarshalJSON accepts an array or a {"value": [...]} wrapper
func (t *Timeframes) UnmarshalJSON(data []byte) error {
	*t = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil || len(wrapper.Value) == 0 {
			return nil
		}
		trimmed = bytes.TrimSpace(wrapper.Value)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var configs []TimeframeConfig
	if err := json.Unmarshal(trimmed, &configs); err != nil {
		return nil
	}
	*t = configs
	return nil
}

func (t Timeframes) at(i int) TimeframeConfig {
	if i < 0 || i >= len(t) {
		return TimeframeConfig{}
	}
	return t[i]
}

// Input is everything a single analysis run needs
type Input struct {
	Overview   TokenOverview      `json:"tokenOverview"`
	Timeframes Timeframes         `json:"timeframeConfigs"`
	Thresholds ThresholdOverrides `json:"thresholds"`
}
