package models

import (
	"time"
)

// PlayerMirror is a local snapshot of user data needed to decorate wager
// listings. Owned solely by the Wager Escrow service; populated via sync
// worker from the Profile Service. The engine itself never authenticates —
// caller identity arrives pre-asserted from the gateway.
type PlayerMirror struct {
	ID                string  `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID    string  `gorm:"uniqueIndex;not null" json:"external_user_id"` // profile service UUID
	Username          string  `gorm:"index;not null" json:"username"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
