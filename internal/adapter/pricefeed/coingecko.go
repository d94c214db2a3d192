// Package pricefeed contains HTTP clients for external spot-price providers.
// Each client implements ports.PriceSource; provider selection and failover
// live in the oracle, not here.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CoinGeckoClient fetches USD spot prices from the CoinGecko simple price
// API. It needs no API key.
type CoinGeckoClient struct {
	baseURL string
	client  *http.Client
}

// NewCoinGeckoClient creates a CoinGecko price source.
func NewCoinGeckoClient(baseURL string, client *http.Client) *CoinGeckoClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &CoinGeckoClient{baseURL: baseURL, client: client}
}

// Name implements ports.PriceSource.
func (c *CoinGeckoClient) Name() string { return "coingecko" }

// FetchPrice returns the USD price for a CoinGecko asset id (e.g.
// "ethereum"). The response shape is {"<asset>":{"usd":<price>}}.
func (c *CoinGeckoClient) FetchPrice(ctx context.Context, asset string) (float64, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(asset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var body map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode coingecko response: %w", err)
	}

	entry, ok := body[asset]
	if !ok {
		return 0, fmt.Errorf("coingecko response missing asset %q", asset)
	}
	return entry.USD, nil
}
