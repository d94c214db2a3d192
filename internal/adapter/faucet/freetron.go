package faucet

import (
	"context"
	"encoding/json"
	"fmt"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// FreeTronAdapter claims from the FreeTron.io faucet. The provider signals
// outcome with a numeric code rather than a boolean.
type FreeTronAdapter struct {
	faucet domain.Faucet
	core   httpCore
}

// NewFreeTronAdapter creates the tron faucet adapter.
func NewFreeTronAdapter(faucet domain.Faucet, cfg config.FaucetConfig, log zerolog.Logger) *FreeTronAdapter {
	return &FreeTronAdapter{
		faucet: faucet,
		core:   newHTTPCore(cfg.Endpoint, cfg.APIKey, cfg.CallTimeout, cfg.RatePerMinute, log),
	}
}

// Faucet implements ports.FaucetAdapter.
func (a *FreeTronAdapter) Faucet() domain.Faucet { return a.faucet }

// Claim implements ports.FaucetAdapter.
func (a *FreeTronAdapter) Claim(ctx context.Context, call ports.FaucetCall) domain.ClaimResult {
	raw, fail := a.core.post(ctx, map[string]string{
		"trx_address": call.WalletAddress,
	})
	if fail != nil {
		return *fail
	}

	var resp struct {
		Code          int     `json:"code"` // 200 on success
		Amount        float64 `json:"amount"`
		TransactionID string  `json:"transaction_id"`
		Msg           string  `json:"msg"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return malformed(err)
	}
	if resp.Code != 200 {
		return rejected(fmt.Sprintf("code %d: %s", resp.Code, resp.Msg))
	}

	amount := resp.Amount
	if amount <= 0 {
		amount = a.faucet.FixedAmount
	}
	return success(amount, resp.TransactionID)
}
