package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/sawpanic/aftershock/internal/config"
)

// MoralisClient talks to the Moralis Solana gateway
type MoralisClient struct {
	rest *restClient
}

// NewMoralisClient authenticates every request with apiKey
func NewMoralisClient(cfg config.ProviderConfig, apiKey string, opts Options) *MoralisClient {
	headers := http.Header{}
	headers.Set("X-API-Key", apiKey)
	return &MoralisClient{rest: newRESTClient(config.ProviderMoralis, cfg, headers, opts)}
}

// TokenPrice returns the price record, including the token's main pairAddress
func (m *MoralisClient) TokenPrice(ctx context.Context, token string) (json.RawMessage, error) {
	return m.rest.getJSON(ctx, "/token/mainnet/"+url.PathEscape(token)+"/price", nil)
}

// TokenHolders returns holder statistics such as totalHolders
func (m *MoralisClient) TokenHolders(ctx context.Context, token string) (json.RawMessage, error) {
	return m.rest.getJSON(ctx, "/token/mainnet/holders/"+url.PathEscape(token), nil)
}

// PairOHLCV returns USD candles for a pair over [from, to] at the given timeframe
func (m *MoralisClient) PairOHLCV(ctx context.Context, pair, timeframe string, from, to time.Time) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("fromDate", from.UTC().Format(time.RFC3339))
	query.Set("toDate", to.UTC().Format(time.RFC3339))
	query.Set("timeframe", timeframe)
	query.Set("currency", "usd")
	return m.rest.getJSON(ctx, "/token/mainnet/pairs/"+url.PathEscape(pair)+"/ohlcv", query)
}
