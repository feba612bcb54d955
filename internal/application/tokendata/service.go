// Package tokendata gathers everything the scoring engine needs about one
// token from the upstream providers and runs the analysis.
package tokendata

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/aftershock/internal/config"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
	"github.com/sawpanic/aftershock/internal/infrastructure/providers"
)

// The messages are returned verbatim as HTTP error bodies, hence the
// sentence case.
var (
	ErrTokenRequired = errors.New("Token address is required.")
	ErrAPIKeyMissing = errors.New("Moralis API key is not configured.")
	ErrPairNotFound  = errors.New("Pair address not found in response.")
)

// MoralisAPI is the subset of the Moralis gateway the service uses
type MoralisAPI interface {
	TokenPrice(ctx context.Context, token string) (json.RawMessage, error)
	TokenHolders(ctx context.Context, token string) (json.RawMessage, error)
	PairOHLCV(ctx context.Context, pair, timeframe string, from, to time.Time) (json.RawMessage, error)
}

// DexScreenerAPI is the subset of DexScreener the service uses
type DexScreenerAPI interface {
	TokenPairs(ctx context.Context, token string) (json.RawMessage, error)
}

// Recorder is notified of every completed analysis
type Recorder interface {
	RecordAnalysis(result aftershock.Result)
}

// AggregatedTokenData is the combined upstream view of one token
type AggregatedTokenData struct {
	MoralisPrice json.RawMessage    `json:"moralisPrice"`
	DexScreener  Payload            `json:"dexscreener"`
	TokenHolders Payload            `json:"tokenHolders"`
	OHLCV        map[string]Payload `json:"ohlcv"`
}

// Options configures a Service
type Options struct {
	APIKey     string
	Timeframes []string
	Lookback   time.Duration
	Params     aftershock.Params
	Recorder   Recorder
}

// Service fetches token data and scores it
type Service struct {
	moralis    MoralisAPI
	dex        DexScreenerAPI
	apiKey     string
	timeframes []string
	lookback   time.Duration
	engine     *aftershock.Engine
	recorder   Recorder
	now        func() time.Time
}

func NewService(moralis MoralisAPI, dex DexScreenerAPI, opts Options) *Service {
	timeframes := opts.Timeframes
	if len(timeframes) == 0 {
		timeframes = config.Default().Timeframes
	}
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = config.Default().Lookback()
	}
	return &Service{
		moralis:    moralis,
		dex:        dex,
		apiKey:     strings.TrimSpace(opts.APIKey),
		timeframes: append([]string(nil), timeframes...),
		lookback:   lookback,
		engine:     aftershock.NewEngine(opts.Params),
		recorder:   opts.Recorder,
		now:        time.Now,
	}
}

// NewFromConfig wires the production provider clients
func NewFromConfig(cfg *config.Config, provOpts providers.Options, recorder Recorder) *Service {
	moralis := providers.NewMoralisClient(cfg.Providers[config.ProviderMoralis], cfg.MoralisAPIKey, provOpts)
	dex := providers.NewDexScreenerClient(cfg.Providers[config.ProviderDexScreener], provOpts)
	return NewService(moralis, dex, Options{
		APIKey:     cfg.MoralisAPIKey,
		Timeframes: cfg.Timeframes,
		Lookback:   cfg.Lookback(),
		Params:     cfg.EngineParams(),
		Recorder:   recorder,
	})
}

// Timeframes returns the short, medium and long timeframe selections
func (s *Service) Timeframes() []string {
	return append([]string(nil), s.timeframes...)
}

// Fetch resolves the token's main pair and then queries holders, DexScreener
// pairs and one OHLCV series per timeframe concurrently. Only the price lookup
// is fatal; every other branch that fails is replaced by an error payload.
func (s *Service) Fetch(ctx context.Context, token string) (*AggregatedTokenData, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	if s.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	price, err := s.moralis.TokenPrice(ctx, token)
	if err != nil {
		return nil, err
	}
	pair := pairAddress(price)
	if pair == "" {
		return nil, ErrPairNotFound
	}

	to := s.now().UTC().Truncate(time.Minute)
	from := to.Add(-s.lookback)

	agg := &AggregatedTokenData{
		MoralisPrice: price,
		OHLCV:        make(map[string]Payload, len(s.timeframes)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(2)
	go func() {
		defer wg.Done()
		agg.DexScreener = toPayload(s.dex.TokenPairs(ctx, token))
	}()
	go func() {
		defer wg.Done()
		agg.TokenHolders = toPayload(s.moralis.TokenHolders(ctx, token))
	}()

	for _, tf := range uniqueStrings(s.timeframes) {
		wg.Add(1)
		go func(tf string) {
			defer wg.Done()
			payload := toPayload(s.moralis.PairOHLCV(ctx, pair, tf, from, to))
			mu.Lock()
			agg.OHLCV[tf] = payload
			mu.Unlock()
		}(tf)
	}
	wg.Wait()

	log.Debug().
		Str("token", token).
		Str("pair", pair).
		Bool("dexscreener_ok", !agg.DexScreener.Failed()).
		Bool("holders_ok", !agg.TokenHolders.Failed()).
		Int("timeframes", len(agg.OHLCV)).
		Msg("Token data aggregated")

	return agg, nil
}

// Analyze fetches the token and scores it with the given threshold overrides
func (s *Service) Analyze(ctx context.Context, token string, overrides aftershock.ThresholdOverrides) (aftershock.Result, error) {
	agg, err := s.Fetch(ctx, token)
	if err != nil {
		return aftershock.Result{}, err
	}

	in := BuildInput(agg, s.timeframes)
	in.Thresholds = overrides
	return s.Score(in), nil
}

// Score runs the engine on a prepared input without touching the network
func (s *Service) Score(in aftershock.Input) aftershock.Result {
	result := s.engine.Analyze(in)
	if s.recorder != nil {
		s.recorder.RecordAnalysis(result)
	}
	return result
}

func toPayload(data json.RawMessage, err error) Payload {
	if err != nil {
		return failed(err)
	}
	return Payload{Data: data}
}

func pairAddress(price json.RawMessage) string {
	var body struct {
		PairAddress string `json:"pairAddress"`
	}
	if err := json.Unmarshal(price, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.PairAddress)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
