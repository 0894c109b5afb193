// services/custody.go
package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"wager-escrow-system/models"
)

// DeriveEscrowAddress derives the custodial account address from the creator
// identity and the wager parameters. The same inputs always land on the same
// account, so re-provisioning is idempotent at the custody layer; duplicate
// wagers are still rejected at the wager layer.
func DeriveEscrowAddress(ownerID string, ref models.AssetRef, joinAmount uint) string {
	seed := EscrowSeed(ownerID, ref, joinAmount)
	sum := sha256.Sum256([]byte(seed))
	return "escrow:" + hex.EncodeToString(sum[:20])
}

// EscrowSeed is the derivation preimage, persisted on the EscrowAccount
// record for auditability.
func EscrowSeed(ownerID string, ref models.AssetRef, joinAmount uint) string {
	return fmt.Sprintf("%s|%s|%d", ownerID, ref.Key(), joinAmount)
}

// DeriveCapability mints the unforgeable token that lets the engine act as
// the escrow account. It is stored only on the owning wager record and never
// serialized outward.
func DeriveCapability(escrowAddress, masterSecret string) string {
	mac := hmac.New(sha256.New, []byte(masterSecret))
	mac.Write([]byte(escrowAddress))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCapability gates every escrow-outbound transfer.
func VerifyCapability(escrowAddress, capability, masterSecret string) bool {
	want := DeriveCapability(escrowAddress, masterSecret)
	return hmac.Equal([]byte(capability), []byte(want))
}

// CapabilityHash is what the escrow registry stores instead of the
// capability itself.
func CapabilityHash(capability string) string {
	sum := sha256.Sum256([]byte(capability))
	return hex.EncodeToString(sum[:])
}
