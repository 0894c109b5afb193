// models/asset_mirror.go
package models

import (
	"time"
)

// AssetMirror mirrors per-asset ownership from the chain sync service.
// Table name: asset_mirror. Ownership transfers executed by the engine
// mutate OwnerAddress inside the operation's transaction.
type AssetMirror struct {
	ID                string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	CollectionCreator string `gorm:"type:varchar(128);not null;uniqueIndex:idx_asset_ref" json:"collection_creator"`
	Collection        string `gorm:"type:varchar(128);not null;uniqueIndex:idx_asset_ref" json:"collection"`
	Name              string `gorm:"type:varchar(128);not null;uniqueIndex:idx_asset_ref" json:"name"`
	Version           uint64 `gorm:"not null;uniqueIndex:idx_asset_ref" json:"version"`

	OwnerAddress string `gorm:"type:varchar(128);not null;index" json:"owner_address"`

	LastSyncedAt time.Time `json:"last_synced_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (AssetMirror) TableName() string { return "asset_mirror" }

func (a *AssetMirror) Ref() AssetRef {
	return AssetRef{
		CollectionCreator: a.CollectionCreator,
		Collection:        a.Collection,
		Name:              a.Name,
		Version:           a.Version,
	}
}

// LedgerAccount tracks per-account receipt authorization. An account must
// have opted into direct receive before it can be a transfer target.
type LedgerAccount struct {
	ID            string `gorm:"primaryKey" json:"id"`
	Address       string `gorm:"type:varchar(128);not null;uniqueIndex" json:"address"`
	DirectReceive bool   `gorm:"not null;default:false" json:"direct_receive"`
	IsEscrow      bool   `gorm:"not null;default:false" json:"is_escrow"`

	Timestamps
}
