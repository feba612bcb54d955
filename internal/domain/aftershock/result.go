package aftershock

// Reason is one entry of the ordered scoring log.
// Points and MaxPoints are nil for informational entries.
type Reason struct {
	Tag       string `json:"tag"`
	Detail    string `json:"detail"`
	Points    *int   `json:"points"`
	MaxPoints *int   `json:"maxPoints"`
}

// Scored reports whether the reason carries points
func (r Reason) Scored() bool {
	return r.MaxPoints != nil
}

// TimeframeEvidence describes one timeframe's metadata and normalized candles
type TimeframeEvidence struct {
	Label     string   `json:"label"`
	Timeframe *string  `json:"timeframe"`
	Candles   []Candle `json:"candles"`
}

// TimeframeSet is the short/medium/long triple
type TimeframeSet struct {
	Short  TimeframeEvidence `json:"short"`
	Medium TimeframeEvidence `json:"medium"`
	Long   TimeframeEvidence `json:"long"`
}

// TrendSet holds the raw trend label per timeframe
type TrendSet struct {
	Short string `json:"short"`
	Mid   string `json:"mid"`
	Long  string `json:"long"`
}

// ImpulseSource names the timeframe the swing was measured on
type ImpulseSource struct {
	Label     string  `json:"label"`
	Timeframe *string `json:"timeframe"`
	Candles   int     `json:"candles"`
}

// Evidence is the raw material behind a verdict. The overview fields, thresholds
// and ohlcv are always present; the rest only after the stages that produce them.
type Evidence struct {
	CurrentPrice *float64     `json:"currentPrice"`
	Liquidity    *float64     `json:"liquidity"`
	Volume24h    *float64     `json:"volume24h"`
	Holders      *float64     `json:"holders"`
	Change24h    *float64     `json:"change24h"`
	Thresholds   Thresholds   `json:"thresholds"`
	OHLCV        TimeframeSet `json:"ohlcv"`

	SwingLow       *float64           `json:"swingLow,omitempty"`
	SwingHigh      *float64           `json:"swingHigh,omitempty"`
	Fib            map[string]float64 `json:"fib,omitempty"`
	FibLevels      []FibLevelDetail   `json:"fibLevels,omitempty"`
	ImpulseGainPct *float64           `json:"impulseGainPct,omitempty"`
	Zone           string             `json:"zone,omitempty"`
	MTF            *TrendSet          `json:"mtf,omitempty"`
	Reaction       *Reaction          `json:"reaction,omitempty"`
	ImpulseSource  *ImpulseSource     `json:"impulseSource,omitempty"`
}

// Result is the engine's single output
type Result struct {
	Verdict       string   `json:"verdict"`
	SetupScore    int      `json:"setup_score"`
	SetupScoreMax int      `json:"setup_score_max"`
	Reasons       []Reason `json:"reasons"`
	Evidence      Evidence `json:"evidence"`
}

// Reason looks up the first reason with the given tag
func (r Result) Reason(tag string) (Reason, bool) {
	for _, reason := range r.Reasons {
		if reason.Tag == tag {
			return reason, true
		}
	}
	return Reason{}, false
}

// Tradable reports whether the verdict is one of the two valid setups
func (r Result) Tradable() bool {
	return r.Verdict == VerdictHighProbability || r.Verdict == VerdictLowProbability
}
