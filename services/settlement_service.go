package services

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"wager-escrow-system/models"
	"wager-escrow-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// SettlementService is the claim side of the engine: it determines the
// winner from the recorded outcome and releases the pooled stake exactly
// once. A losing participant may still call claim — that closes the wager
// out without any transfer, which is intended behavior.
type SettlementService struct {
	DB           *gorm.DB
	Ledger       *LedgerService
	EscrowSecret string
}

func NewSettlementService(db *gorm.DB, ledger *LedgerService, escrowSecret string) *SettlementService {
	return &SettlementService{DB: db, Ledger: ledger, EscrowSecret: escrowSecret}
}

// findForSettlement resolves the wager a claim targets. Unlike findCurrent
// it also surfaces already-claimed wagers, so a repeat claim fails with
// "already claimed" instead of "not found". Cancelled wagers have nothing
// to settle and stay invisible here.
func findForSettlement(tx *gorm.DB, creatorID string) (*models.Wager, error) {
	var w models.Wager
	err := tx.Where("creator_id = ? AND status IN ?", creatorID, []string{
		models.WagerStatusOpen, models.WagerStatusJoined,
		models.WagerStatusResolved, models.WagerStatusClaimed,
	}).Order("created_at DESC").First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// ClaimWager settles the wager keyed by creatorID on behalf of callerID.
// Returns the settled wager and whether a payout actually happened.
func (s *SettlementService) ClaimWager(callerID, creatorID string) (*models.Wager, bool, error) {
	var (
		claimed *models.Wager
		payout  bool
		receipt *models.SettlementReceipt
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		w, err := findForSettlement(lockForUpdate(tx), creatorID)
		if err != nil {
			return err
		}
		if err := MustExist(w); err != nil {
			return err
		}
		if err := MustNotBeActive(w); err != nil {
			return err
		}
		if err := MustNotHaveClaimed(w); err != nil {
			return err
		}
		if err := MustHaveOutcome(w); err != nil {
			return err
		}
		if err := MustBeAParticipant(w, callerID); err != nil {
			return err
		}

		winnerID := w.CreatorID
		if !*w.CreatorWon {
			winnerID = *w.OpponentID
		}

		opponentAssets, err := w.OpponentAssets()
		if err != nil {
			return err
		}

		assetCount := 0
		if callerID == winnerID {
			if !VerifyCapability(w.EscrowAddress, w.Capability, s.EscrowSecret) {
				return ErrBadCapability
			}
			pool := append([]models.AssetRef{w.CreatorAsset()}, opponentAssets...)
			for _, ref := range pool {
				if err := s.Ledger.Transfer(tx, w.EscrowAddress, ref, callerID); err != nil {
					return err
				}
			}
			if err := adjustHoldings(tx, w.EscrowAddress, -len(pool)); err != nil {
				return err
			}
			assetCount = len(pool)
			payout = true
		}

		now := time.Now().UTC()
		w.Status = models.WagerStatusClaimed
		w.ClaimedAt = &now
		if err := tx.Save(w).Error; err != nil {
			return err
		}

		rec := models.SettlementReceipt{
			ID:         uuid.NewString(),
			WagerID:    w.ID,
			CreatorID:  w.CreatorID,
			WinnerID:   winnerID,
			ClaimedBy:  callerID,
			Payout:     payout,
			AssetCount: assetCount,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}

		claimed = w
		receipt = &rec
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.archiveReceipt(receipt)

	if payout {
		log.Printf("💰 [SETTLE] wager %s paid out %d asset(s) to %s", claimed.ID, receipt.AssetCount, callerID)
	} else {
		log.Printf("🔒 [SETTLE] wager %s closed out by %s (no payout)", claimed.ID, callerID)
	}
	return claimed, payout, nil
}

// archiveReceipt pushes the receipt JSON to the archive after commit.
// Best effort: settlement already happened, a failed archive only logs.
func (s *SettlementService) archiveReceipt(rec *models.SettlementReceipt) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Printf("⚠️ [SETTLE] Failed to encode receipt %s: %v", rec.ID, err)
		return
	}

	key := "receipts/" + slug.Make(rec.CreatorID+"-"+rec.WagerID) + ".json"
	url, err := utils.ArchiveReceipt(key, payload)
	if err != nil {
		log.Printf("⚠️ [SETTLE] Failed to archive receipt %s: %v", rec.ID, err)
		return
	}

	if err := s.DB.Model(rec).Update("archive_url", url).Error; err != nil {
		log.Printf("⚠️ [SETTLE] Failed to record archive URL for receipt %s: %v", rec.ID, err)
	}
}

// ---- HTTP handlers ----

// HandleClaim handles POST /wagers/:creator_id/claim
func (s *SettlementService) HandleClaim(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)
	creatorID := c.Params("creator_id")

	w, payout, err := s.ClaimWager(callerID, creatorID)
	if err != nil {
		return wagerError(c, err)
	}
	return c.JSON(fiber.Map{"wager": w, "payout": payout})
}

// HandleListReceipts handles GET /receipts for the caller's own settlements.
func (s *SettlementService) HandleListReceipts(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)

	var receipts []models.SettlementReceipt
	if err := s.DB.Where("creator_id = ? OR winner_id = ? OR claimed_by = ?", callerID, callerID, callerID).
		Order("claimed_at DESC").Find(&receipts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(fiber.Map{"receipts": receipts, "count": len(receipts)})
}
