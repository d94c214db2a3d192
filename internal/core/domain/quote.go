package domain

import "time"

// QuoteSource identifies which upstream produced a price observation.
type QuoteSource string

const (
	QuoteSourcePrimary  QuoteSource = "primary"
	QuoteSourceFallback QuoteSource = "fallback"
)

// Quote is an immutable USD price observation for an asset. The oracle owns
// the current Quote; readers receive copies and never mutate it.
type Quote struct {
	Asset      string      `json:"asset"`
	USDPrice   float64     `json:"usd_price"` // always > 0
	ObservedAt time.Time   `json:"observed_at"`
	Source     QuoteSource `json:"source"`
	Stale      bool        `json:"stale"` // set by the oracle at read time
}

// Age returns how old the quote is relative to now.
func (q *Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}
