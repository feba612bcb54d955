package providers

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/sawpanic/aftershock/internal/config"
)

// DexScreenerClient reads public DexScreener pair data
type DexScreenerClient struct {
	rest *restClient
}

func NewDexScreenerClient(cfg config.ProviderConfig, opts Options) *DexScreenerClient {
	return &DexScreenerClient{rest: newRESTClient(config.ProviderDexScreener, cfg, nil, opts)}
}

// TokenPairs returns every Solana pair that trades the token
func (d *DexScreenerClient) TokenPairs(ctx context.Context, token string) (json.RawMessage, error) {
	return d.rest.getJSON(ctx, "/tokens/v1/solana/"+url.PathEscape(token), nil)
}
