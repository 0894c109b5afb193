package models

import "time"

// EscrowAccount is the engine-side registry of custodial accounts. The
// address is derived deterministically from the creator identity and the
// wager parameters, so re-provisioning with identical parameters lands on
// the same account. Only the capability hash is stored; the capability
// itself lives on the owning Wager and is never exposed.
type EscrowAccount struct {
	ID             string `gorm:"primaryKey" json:"id"`
	Address        string `gorm:"type:varchar(128);not null;uniqueIndex" json:"address"`
	OwnerID        string `gorm:"index;not null" json:"owner_id"`
	Seed           string `gorm:"not null" json:"seed"`
	CapabilityHash string `gorm:"not null" json:"-"`

	// Expected holdings, maintained by the engine on every custody move.
	// The audit scheduler recounts from asset_mirror and flags drift.
	Holdings    int        `gorm:"default:0" json:"holdings"`
	LastAuditAt *time.Time `json:"last_audit_at,omitempty"`

	Timestamps
}
