package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister   AuditAction = "REGISTER"
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionWalletBind AuditAction = "WALLET_BIND"
	AuditActionClaim      AuditAction = "CLAIM"
	// AuditActionClaimAmbiguous flags claims whose external outcome could not
	// be confirmed; these need manual reconciliation.
	AuditActionClaimAmbiguous AuditAction = "CLAIM_AMBIGUOUS"
	// AuditActionPersistenceFailure flags the severe case where the external
	// faucet call succeeded but the ledger write failed.
	AuditActionPersistenceFailure AuditAction = "PERSISTENCE_FAILURE"
)

// AuditLog records a single audited action in the system. Ambiguous and
// persistence-failure entries double as the operational reconciliation queue.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	UserID       *uuid.UUID  `json:"user_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
