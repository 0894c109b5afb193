// services/ledger_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"wager-escrow-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService is the asset ledger collaborator: atomic per-call ownership
// transfer over the local asset mirror, plus the direct-receive opt-in
// registry. The wager engine calls Transfer/OptInDirectReceive inside its
// own transaction so a rejection rolls back the whole operation.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// Transfer moves one asset from `from` to `to`. Fails with
// ErrTransferRejected unless `from` currently owns the asset and `to` has
// opted into direct receive.
func (s *LedgerService) Transfer(tx *gorm.DB, from string, ref models.AssetRef, to string) error {
	var asset models.AssetMirror
	err := tx.Where(
		"collection_creator = ? AND collection = ? AND name = ? AND version = ?",
		ref.CollectionCreator, ref.Collection, ref.Name, ref.Version,
	).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: asset %s is unknown to the ledger", ErrTransferRejected, ref.Key())
		}
		return err
	}

	if asset.OwnerAddress != from {
		return fmt.Errorf("%w: %s does not hold %s", ErrTransferRejected, from, ref.Key())
	}

	var receiver models.LedgerAccount
	err = tx.Where("address = ?", to).First(&receiver).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: receiver %s has not authorized direct receive", ErrTransferRejected, to)
		}
		return err
	}
	if !receiver.DirectReceive {
		return fmt.Errorf("%w: receiver %s has not authorized direct receive", ErrTransferRejected, to)
	}

	return tx.Model(&asset).Update("owner_address", to).Error
}

// OptInDirectReceive grants an account the one-time capability to receive
// assets without per-transfer consent. Idempotent.
func (s *LedgerService) OptInDirectReceive(tx *gorm.DB, address string, isEscrow bool) error {
	account := models.LedgerAccount{
		ID:            uuid.NewString(),
		Address:       address,
		DirectReceive: true,
		IsEscrow:      isEscrow,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"direct_receive": true}),
	}).Create(&account).Error
}

// Mint seeds an asset into the mirror with an initial owner. Exposed for
// admin/tooling; live deployments normally receive assets via the sync worker.
func (s *LedgerService) Mint(ref models.AssetRef, owner string) (*models.AssetMirror, error) {
	asset := models.AssetMirror{
		ID:                uuid.NewString(),
		CollectionCreator: ref.CollectionCreator,
		Collection:        models.CanonicalCollection(ref.Collection),
		Name:              ref.Name,
		Version:           ref.Version,
		OwnerAddress:      owner,
		LastSyncedAt:      time.Now().UTC(),
	}
	if err := s.DB.Create(&asset).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// ---- HTTP handlers ----

// MintAsset handles POST /assets
func (s *LedgerService) MintAsset(c *fiber.Ctx) error {
	var req struct {
		CollectionCreator string `json:"collection_creator"`
		Collection        string `json:"collection"`
		Name              string `json:"name"`
		Version           uint64 `json:"version"`
		Owner             string `json:"owner"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Collection == "" || req.Name == "" || req.Owner == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection, name and owner are required"})
	}

	ref := models.AssetRef{
		CollectionCreator: req.CollectionCreator,
		Collection:        req.Collection,
		Name:              req.Name,
		Version:           req.Version,
	}
	asset, err := s.Mint(ref, req.Owner)
	if err != nil {
		log.Printf("❌ [LEDGER] Failed to mint %s: %v", ref.Key(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to mint asset"})
	}
	return c.Status(fiber.StatusCreated).JSON(asset)
}

// OptIn handles POST /accounts/opt-in for the caller's own identity.
func (s *LedgerService) OptIn(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)
	if err := s.OptInDirectReceive(s.DB, callerID, false); err != nil {
		log.Printf("❌ [LEDGER] Opt-in failed for %s: %v", callerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to opt in"})
	}
	return c.JSON(fiber.Map{"address": callerID, "direct_receive": true})
}

// GetAssetsByOwner handles GET /assets?owner=...
func (s *LedgerService) GetAssetsByOwner(c *fiber.Ctx) error {
	owner := c.Query("owner")
	if owner == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner query param is required"})
	}
	var assets []models.AssetMirror
	if err := s.DB.Where("owner_address = ?", owner).Find(&assets).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(fiber.Map{"owner": owner, "assets": assets, "count": len(assets)})
}
