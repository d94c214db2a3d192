package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGeckoClient_FetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ethereum":{"usd":2300.55}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL, srv.Client())
	price, err := client.FetchPrice(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, 2300.55, price)
}

func TestCoinGeckoClient_FetchPrice_MissingAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL, srv.Client())
	_, err := client.FetchPrice(context.Background(), "ethereum")
	assert.ErrorContains(t, err, "missing asset")
}

func TestCoinGeckoClient_FetchPrice_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL, srv.Client())
	_, err := client.FetchPrice(context.Background(), "ethereum")
	assert.ErrorContains(t, err, "status 429")
}

func TestCoinGeckoClient_FetchPrice_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL, srv.Client())
	_, err := client.FetchPrice(context.Background(), "ethereum")
	assert.ErrorContains(t, err, "decode")
}

func TestCoinMarketCapClient_FetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cryptocurrency/quotes/latest", r.URL.Path)
		assert.Equal(t, "ETH", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"ETH":{"quote":{"USD":{"price":2298.77}}}}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewCoinMarketCapClient(srv.URL, "test-api-key", srv.Client())
	price, err := client.FetchPrice(context.Background(), "ethereum")
	require.NoError(t, err)
	assert.Equal(t, 2298.77, price)
}

func TestCoinMarketCapClient_FetchPrice_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewCoinMarketCapClient(srv.URL, "bad-key", srv.Client())
	_, err := client.FetchPrice(context.Background(), "ethereum")
	assert.ErrorContains(t, err, "status 401")
}

func TestCoinMarketCapClient_FetchPrice_MissingSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewCoinMarketCapClient(srv.URL, "key", srv.Client())
	_, err := client.FetchPrice(context.Background(), "ethereum")
	assert.ErrorContains(t, err, "missing symbol")
}

func TestCoinGeckoClient_FetchPrice_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ethereum":{"usd":2300}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewCoinGeckoClient(srv.URL, srv.Client())
	_, err := client.FetchPrice(ctx, "ethereum")
	assert.Error(t, err)
}
