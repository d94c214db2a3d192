package domain

import (
	"time"

	"github.com/google/uuid"
)

// WalletBinding associates a user with a payout address for one
// cryptocurrency. Upserted by address; last write wins per
// (user, cryptocurrency).
type WalletBinding struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Cryptocurrency string    `json:"cryptocurrency"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
