package faucet

import (
	"context"
	"encoding/json"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// FreeEthereumAdapter claims from the Free-Ethereum.io faucet. Unlike the
// fixed-amount providers it accepts a requested amount, which the dispatcher
// derives from the USD target and the current quote.
type FreeEthereumAdapter struct {
	faucet domain.Faucet
	core   httpCore
}

// NewFreeEthereumAdapter creates the ethereum faucet adapter.
func NewFreeEthereumAdapter(faucet domain.Faucet, cfg config.FaucetConfig, log zerolog.Logger) *FreeEthereumAdapter {
	return &FreeEthereumAdapter{
		faucet: faucet,
		core:   newHTTPCore(cfg.Endpoint, cfg.APIKey, cfg.CallTimeout, cfg.RatePerMinute, log),
	}
}

// Faucet implements ports.FaucetAdapter.
func (a *FreeEthereumAdapter) Faucet() domain.Faucet { return a.faucet }

// Claim implements ports.FaucetAdapter.
func (a *FreeEthereumAdapter) Claim(ctx context.Context, call ports.FaucetCall) domain.ClaimResult {
	raw, fail := a.core.post(ctx, map[string]any{
		"eth_address": call.WalletAddress,
		"amount":      call.Amount,
	})
	if fail != nil {
		return *fail
	}

	var resp struct {
		Status  string  `json:"status"` // "success" or "error"
		Amount  float64 `json:"amount"`
		TxHash  string  `json:"tx_hash"`
		Message string  `json:"message"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return malformed(err)
	}
	if resp.Status != "success" {
		return rejected(resp.Message)
	}

	amount := resp.Amount
	if amount <= 0 {
		amount = call.Amount
	}
	return success(amount, resp.TxHash)
}
