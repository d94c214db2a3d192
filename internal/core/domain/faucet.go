package domain

import "time"

// ValuationMode determines how a faucet's claim amount is derived.
type ValuationMode string

const (
	// ValuationFixedAmount dispenses a faucet-constant amount.
	ValuationFixedAmount ValuationMode = "fixed_amount"
	// ValuationUSDTargetDerived derives the amount from a USD target and the
	// oracle's current quote (the "coffee-equivalent" mode).
	ValuationUSDTargetDerived ValuationMode = "usd_target_derived"
)

// Faucet is immutable reference data for one external faucet service,
// loaded from configuration at startup.
type Faucet struct {
	ID              int           `json:"id"`
	Type            string        `json:"type"` // request key, e.g. "bitcoin"
	Name            string        `json:"name"`
	Symbol          string        `json:"symbol"`
	CooldownSeconds int           `json:"cooldown_seconds"`
	ValuationMode   ValuationMode `json:"valuation_mode"`
	FixedAmount     float64       `json:"fixed_amount,omitempty"`
}

// Cooldown returns the faucet cooldown as a duration.
func (f Faucet) Cooldown() time.Duration {
	return time.Duration(f.CooldownSeconds) * time.Second
}
