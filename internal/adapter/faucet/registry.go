package faucet

import (
	"fmt"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// BuildAdapters constructs one adapter per configured faucet, keyed by
// faucet type. Unknown types are a configuration error, not a runtime
// fallback.
func BuildAdapters(cfgs map[string]config.FaucetConfig, log zerolog.Logger) (map[string]ports.FaucetAdapter, error) {
	adapters := make(map[string]ports.FaucetAdapter, len(cfgs))
	for faucetType, cfg := range cfgs {
		f := faucetFromConfig(faucetType, cfg)
		adapterLog := log.With().Str("faucet", faucetType).Logger()

		switch faucetType {
		case "bitcoin":
			adapters[faucetType] = NewFreeBitcoinAdapter(f, cfg, adapterLog)
		case "ethereum":
			adapters[faucetType] = NewFreeEthereumAdapter(f, cfg, adapterLog)
		case "litecoin":
			adapters[faucetType] = NewFreeLitecoinAdapter(f, cfg, adapterLog)
		case "dogecoin":
			adapters[faucetType] = NewFreeDogeAdapter(f, cfg, adapterLog)
		case "tron":
			adapters[faucetType] = NewFreeTronAdapter(f, cfg, adapterLog)
		default:
			return nil, fmt.Errorf("no adapter for faucet type %q", faucetType)
		}
	}
	return adapters, nil
}

// Catalog extracts the faucet reference data from the adapter set.
func Catalog(adapters map[string]ports.FaucetAdapter) []domain.Faucet {
	faucets := make([]domain.Faucet, 0, len(adapters))
	for _, a := range adapters {
		faucets = append(faucets, a.Faucet())
	}
	return faucets
}

func faucetFromConfig(faucetType string, cfg config.FaucetConfig) domain.Faucet {
	return domain.Faucet{
		ID:              cfg.ID,
		Type:            faucetType,
		Name:            cfg.Name,
		Symbol:          cfg.Symbol,
		CooldownSeconds: cfg.CooldownSeconds,
		ValuationMode:   domain.ValuationMode(cfg.ValuationMode),
		FixedAmount:     cfg.FixedAmount,
	}
}
