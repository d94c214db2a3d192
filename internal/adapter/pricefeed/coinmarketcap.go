package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// CoinMarketCapClient fetches USD spot prices from the CoinMarketCap quotes
// API. It authenticates with an API key header and addresses assets by
// ticker symbol rather than slug.
type CoinMarketCapClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	// symbols maps asset ids ("ethereum") to CMC symbols ("ETH").
	symbols map[string]string
}

// NewCoinMarketCapClient creates a CoinMarketCap price source.
func NewCoinMarketCapClient(baseURL, apiKey string, client *http.Client) *CoinMarketCapClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &CoinMarketCapClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		symbols: map[string]string{
			"bitcoin":  "BTC",
			"ethereum": "ETH",
			"litecoin": "LTC",
			"dogecoin": "DOGE",
			"tron":     "TRX",
		},
	}
}

// Name implements ports.PriceSource.
func (c *CoinMarketCapClient) Name() string { return "coinmarketcap" }

// FetchPrice returns the USD price for an asset id. The response shape is
// {"data":{"<SYMBOL>":{"quote":{"USD":{"price":<price>}}}}}.
func (c *CoinMarketCapClient) FetchPrice(ctx context.Context, asset string) (float64, error) {
	symbol, ok := c.symbols[asset]
	if !ok {
		symbol = strings.ToUpper(asset)
	}

	endpoint := fmt.Sprintf("%s/v1/cryptocurrency/quotes/latest?symbol=%s",
		c.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coinmarketcap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coinmarketcap returned status %d", resp.StatusCode)
	}

	var body struct {
		Data map[string]struct {
			Quote struct {
				USD struct {
					Price float64 `json:"price"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode coinmarketcap response: %w", err)
	}

	entry, ok := body.Data[symbol]
	if !ok {
		return 0, fmt.Errorf("coinmarketcap response missing symbol %q", symbol)
	}
	return entry.Quote.USD.Price, nil
}
