package faucet

import (
	"context"
	"encoding/json"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// FreeBitcoinAdapter claims from the FreeBitco.in faucet. The payout is a
// fixed satoshi amount decided by the provider tier, so the dispatch amount
// is advisory only.
type FreeBitcoinAdapter struct {
	faucet domain.Faucet
	core   httpCore
}

// NewFreeBitcoinAdapter creates the bitcoin faucet adapter.
func NewFreeBitcoinAdapter(faucet domain.Faucet, cfg config.FaucetConfig, log zerolog.Logger) *FreeBitcoinAdapter {
	return &FreeBitcoinAdapter{
		faucet: faucet,
		core:   newHTTPCore(cfg.Endpoint, cfg.APIKey, cfg.CallTimeout, cfg.RatePerMinute, log),
	}
}

// Faucet implements ports.FaucetAdapter.
func (a *FreeBitcoinAdapter) Faucet() domain.Faucet { return a.faucet }

// Claim implements ports.FaucetAdapter.
func (a *FreeBitcoinAdapter) Claim(ctx context.Context, call ports.FaucetCall) domain.ClaimResult {
	raw, fail := a.core.post(ctx, map[string]string{
		"btc_address": call.WalletAddress,
	})
	if fail != nil {
		return *fail
	}

	var resp struct {
		Success bool    `json:"success"`
		Amount  float64 `json:"amount"`
		TxID    string  `json:"txid"`
		Error   string  `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return malformed(err)
	}
	if !resp.Success {
		return rejected(resp.Error)
	}

	amount := resp.Amount
	if amount <= 0 {
		amount = a.faucet.FixedAmount
	}
	return success(amount, resp.TxID)
}
