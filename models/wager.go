package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	WagerStatusOpen      = "open"      // created, waiting for an opponent
	WagerStatusJoined    = "joined"    // opponent matched the join price
	WagerStatusResolved  = "resolved"  // creator declared a winner
	WagerStatusCancelled = "cancelled" // creator backed out before a join
	WagerStatusClaimed   = "claimed"   // pooled stake released (or closed out)
)

// Wager is the persistent record of one game instance, keyed by the
// creator's identity. At most one non-terminal wager may exist per creator.
type Wager struct {
	ID string `json:"id" gorm:"primaryKey"`

	// The partial unique index enforces the one-live-wager rule even when
	// two creates race past the existence guard.
	CreatorID string `json:"creator_id" gorm:"index;not null;uniqueIndex:idx_live_wager,where:status = 'open' OR status = 'joined' OR status = 'resolved'"`

	// The unique asset the creator staked
	CreatorAssetCreator string `json:"creator_asset_creator" gorm:"not null"`
	CreatorAssetColl    string `json:"creator_asset_collection" gorm:"not null"`
	CreatorAssetName    string `json:"creator_asset_name" gorm:"not null"`
	CreatorAssetVersion uint64 `json:"creator_asset_version" gorm:"default:0"`

	// Join price: exact count of assets from JoinCollection the opponent must stake
	JoinCollection string `json:"join_collection" gorm:"not null"`
	JoinAmount     uint   `json:"join_amount" gorm:"not null"`

	// Set exactly once, at join time
	OpponentID         *string `json:"opponent_id,omitempty" gorm:"index"`
	OpponentAssetsJSON string  `json:"-" gorm:"column:opponent_assets"`

	Status     string `json:"status" gorm:"type:varchar(16);index;default:'open'"`
	CreatorWon *bool  `json:"creator_won,omitempty"` // set exactly once, at resolution

	// Custodial account holding the pooled stake. The capability authorizes
	// the engine alone to move assets out of escrow; it never leaves the engine.
	EscrowAddress string `json:"escrow_address" gorm:"index;not null"`
	Capability    string `json:"-" gorm:"not null"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`

	Timestamps
}

// Active reports whether the wager still accepts lifecycle transitions.
func (w *Wager) Active() bool {
	return w.Status == WagerStatusOpen || w.Status == WagerStatusJoined
}

// Terminal reports whether the wager can never transition again.
func (w *Wager) Terminal() bool {
	return w.Status == WagerStatusCancelled || w.Status == WagerStatusClaimed
}

func (w *Wager) CreatorAsset() AssetRef {
	return AssetRef{
		CollectionCreator: w.CreatorAssetCreator,
		Collection:        w.CreatorAssetColl,
		Name:              w.CreatorAssetName,
		Version:           w.CreatorAssetVersion,
	}
}

// OpponentAssets decodes the staked opponent assets. Empty until joined.
func (w *Wager) OpponentAssets() ([]AssetRef, error) {
	if w.OpponentAssetsJSON == "" {
		return nil, nil
	}
	var refs []AssetRef
	if err := json.Unmarshal([]byte(w.OpponentAssetsJSON), &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (w *Wager) SetOpponentAssets(refs []AssetRef) error {
	data, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	w.OpponentAssetsJSON = string(data)
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
