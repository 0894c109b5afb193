package models

import "time"

// SettlementReceipt = immutable record written when a wager is claimed.
// A losing participant closing out the wager produces a receipt with
// Payout=false and AssetCount=0.
type SettlementReceipt struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	WagerID    string    `gorm:"index;not null" json:"wager_id"`
	CreatorID  string    `gorm:"index;not null" json:"creator_id"`
	WinnerID   string    `gorm:"not null" json:"winner_id"`
	ClaimedBy  string    `gorm:"not null" json:"claimed_by"`
	Payout     bool      `json:"payout"`                 // assets actually moved
	AssetCount int       `json:"asset_count"`            // creator asset + opponent stake
	ArchiveURL string    `json:"archive_url,omitempty"`  // R2/local archive location
	ClaimedAt  time.Time `json:"claimed_at" gorm:"autoCreateTime"`
}
