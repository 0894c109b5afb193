package services

import (
	"errors"
	"log"
	"time"

	"wager-escrow-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidJoinAmount = errors.New("join amount must be at least 1")

// WagerService owns the wager lifecycle: create, cancel, join, resolve.
// Every operation is a single transaction — guards run first, then custody
// moves, then the state write; any failure rolls the whole thing back.
type WagerService struct {
	DB           *gorm.DB
	Ledger       *LedgerService
	EscrowSecret string
}

func NewWagerService(db *gorm.DB, ledger *LedgerService, escrowSecret string) *WagerService {
	return &WagerService{DB: db, Ledger: ledger, EscrowSecret: escrowSecret}
}

// lockForUpdate takes a row lock so concurrent operations on the same
// creator key serialize inside their transactions. SQLite runs a single
// writer and has no FOR UPDATE syntax, so the clause is Postgres-only.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// findCurrent returns the creator's non-terminal wager, or nil if the key is
// free. Cancelled and claimed wagers stay on record but no longer occupy
// the key. A resolved-but-unclaimed wager still does: its stake is in escrow.
func findCurrent(tx *gorm.DB, creatorID string) (*models.Wager, error) {
	var w models.Wager
	err := tx.Where("creator_id = ? AND status IN ?", creatorID, []string{
		models.WagerStatusOpen, models.WagerStatusJoined, models.WagerStatusResolved,
	}).Order("created_at DESC").First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

// CreateWager stakes the creator's asset into a freshly derived escrow
// account and opens the wager.
func (s *WagerService) CreateWager(creatorID string, ref models.AssetRef, joinCollection string, joinAmount uint) (*models.Wager, error) {
	if joinAmount < 1 {
		return nil, ErrInvalidJoinAmount
	}

	var created *models.Wager
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		current, err := findCurrent(lockForUpdate(tx), creatorID)
		if err != nil {
			return err
		}
		if err := MustNotExist(current); err != nil {
			return err
		}

		escrowAddr := DeriveEscrowAddress(creatorID, ref, joinAmount)
		capability := DeriveCapability(escrowAddr, s.EscrowSecret)

		// Same parameters always derive the same account; re-provisioning
		// is a no-op at this layer.
		account := models.EscrowAccount{
			ID:             uuid.NewString(),
			Address:        escrowAddr,
			OwnerID:        creatorID,
			Seed:           EscrowSeed(creatorID, ref, joinAmount),
			CapabilityHash: CapabilityHash(capability),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoNothing: true,
		}).Create(&account).Error; err != nil {
			return err
		}

		if err := s.Ledger.OptInDirectReceive(tx, escrowAddr, true); err != nil {
			return err
		}
		if err := s.Ledger.Transfer(tx, creatorID, ref, escrowAddr); err != nil {
			return err
		}
		if err := adjustHoldings(tx, escrowAddr, 1); err != nil {
			return err
		}

		w := models.Wager{
			ID:                  uuid.NewString(),
			CreatorID:           creatorID,
			CreatorAssetCreator: ref.CollectionCreator,
			CreatorAssetColl:    ref.Collection,
			CreatorAssetName:    ref.Name,
			CreatorAssetVersion: ref.Version,
			JoinCollection:      models.CanonicalCollection(joinCollection),
			JoinAmount:          joinAmount,
			Status:              models.WagerStatusOpen,
			EscrowAddress:       escrowAddr,
			Capability:          capability,
		}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		created = &w
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [WAGER] %s opened wager %s (join: %d × %q)", creatorID, created.ID, created.JoinAmount, created.JoinCollection)
	return created, nil
}

// CancelWager returns the creator's stake and retires the wager. Only
// possible before an opponent joins; the key becomes free again afterwards.
func (s *WagerService) CancelWager(creatorID string) (*models.Wager, error) {
	var cancelled *models.Wager
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		w, err := findCurrent(lockForUpdate(tx), creatorID)
		if err != nil {
			return err
		}
		if err := MustExist(w); err != nil {
			return err
		}
		if err := MustBeActive(w); err != nil {
			return err
		}
		if err := MustNotHaveOpponent(w); err != nil {
			return err
		}

		if !VerifyCapability(w.EscrowAddress, w.Capability, s.EscrowSecret) {
			return ErrBadCapability
		}
		if err := s.Ledger.Transfer(tx, w.EscrowAddress, w.CreatorAsset(), creatorID); err != nil {
			return err
		}
		if err := adjustHoldings(tx, w.EscrowAddress, -1); err != nil {
			return err
		}

		w.Status = models.WagerStatusCancelled
		if err := tx.Save(w).Error; err != nil {
			return err
		}
		cancelled = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("↩️  [WAGER] %s cancelled wager %s, stake returned", creatorID, cancelled.ID)
	return cancelled, nil
}

// JoinWager stakes the caller's assets against an open wager. All transfers
// and the opponent write commit together or not at all.
func (s *WagerService) JoinWager(callerID, creatorID string, refs []models.AssetRef) (*models.Wager, error) {
	var joined *models.Wager
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		w, err := findCurrent(lockForUpdate(tx), creatorID)
		if err != nil {
			return err
		}
		if err := MustExist(w); err != nil {
			return err
		}
		if err := MustBeActive(w); err != nil {
			return err
		}
		if err := MustNotHaveOpponent(w); err != nil {
			return err
		}
		if err := JoinAmountMet(w, len(refs)); err != nil {
			return err
		}
		if err := SameCollection(w, refs); err != nil {
			return err
		}

		for _, ref := range refs {
			if err := s.Ledger.Transfer(tx, callerID, ref, w.EscrowAddress); err != nil {
				return err
			}
		}
		if err := adjustHoldings(tx, w.EscrowAddress, len(refs)); err != nil {
			return err
		}

		w.OpponentID = &callerID
		if err := w.SetOpponentAssets(refs); err != nil {
			return err
		}
		w.Status = models.WagerStatusJoined
		if err := tx.Save(w).Error; err != nil {
			return err
		}
		joined = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🤝 [WAGER] %s joined wager %s with %d asset(s)", callerID, joined.ID, len(refs))
	return joined, nil
}

// ResolveWager records the outcome. Structurally creator-only: the wager is
// looked up by the caller's own identity, so no other party can reach it.
func (s *WagerService) ResolveWager(creatorID string, creatorWon bool) (*models.Wager, error) {
	var resolved *models.Wager
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		w, err := findCurrent(lockForUpdate(tx), creatorID)
		if err != nil {
			return err
		}
		if err := MustExist(w); err != nil {
			return err
		}
		if err := MustBeActive(w); err != nil {
			return err
		}
		if err := MustHaveOpponent(w); err != nil {
			return err
		}

		now := time.Now().UTC()
		w.CreatorWon = &creatorWon
		w.Status = models.WagerStatusResolved
		w.ResolvedAt = &now
		if err := tx.Save(w).Error; err != nil {
			return err
		}
		resolved = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🏁 [WAGER] wager %s resolved (creator won: %t)", resolved.ID, creatorWon)
	return resolved, nil
}

func adjustHoldings(tx *gorm.DB, escrowAddress string, delta int) error {
	return tx.Model(&models.EscrowAccount{}).
		Where("address = ?", escrowAddress).
		UpdateColumn("holdings", gorm.Expr("holdings + ?", delta)).Error
}

// ---- HTTP handlers ----

// CreateWagerRequest is the POST /wagers body.
type CreateWagerRequest struct {
	CollectionCreator string `json:"collection_creator"`
	Collection        string `json:"collection"`
	Name              string `json:"name"`
	Version           uint64 `json:"version"`
	JoinCollection    string `json:"join_collection"`
	JoinAmount        uint   `json:"join_amount"`
}

// JoinWagerRequest carries the opponent stake as four parallel lists, the
// shape the ledger gateway emits. EqualLengths validates it before any
// wager state is consulted.
type JoinWagerRequest struct {
	CollectionCreators []string `json:"collection_creators"`
	Collections        []string `json:"collections"`
	Names              []string `json:"names"`
	Versions           []uint64 `json:"versions"`
}

// Refs canonicalizes collection names on the way in, so ledger lookups and
// stored wager columns agree with the mirror's canonical form.
func (r *JoinWagerRequest) Refs() []models.AssetRef {
	refs := make([]models.AssetRef, len(r.Names))
	for i := range r.Names {
		refs[i] = models.AssetRef{
			CollectionCreator: r.CollectionCreators[i],
			Collection:        models.CanonicalCollection(r.Collections[i]),
			Name:              r.Names[i],
			Version:           r.Versions[i],
		}
	}
	return refs
}

func (s *WagerService) HandleCreate(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)

	var req CreateWagerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.Collection == "" || req.Name == "" || req.JoinCollection == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "collection, name and join_collection are required"})
	}

	ref := models.AssetRef{
		CollectionCreator: req.CollectionCreator,
		Collection:        models.CanonicalCollection(req.Collection),
		Name:              req.Name,
		Version:           req.Version,
	}
	w, err := s.CreateWager(callerID, ref, req.JoinCollection, req.JoinAmount)
	if err != nil {
		return wagerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(w)
}

func (s *WagerService) HandleCancel(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)
	w, err := s.CancelWager(callerID)
	if err != nil {
		return wagerError(c, err)
	}
	return c.JSON(w)
}

func (s *WagerService) HandleJoin(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)
	creatorID := c.Params("creator_id")

	var req JoinWagerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if err := EqualLengths(req.CollectionCreators, req.Collections, req.Names, req.Versions); err != nil {
		return wagerError(c, err)
	}

	w, err := s.JoinWager(callerID, creatorID, req.Refs())
	if err != nil {
		return wagerError(c, err)
	}
	return c.JSON(w)
}

func (s *WagerService) HandleResolve(c *fiber.Ctx) error {
	callerID := c.Locals("user_id").(string)

	var req struct {
		CreatorWon *bool `json:"creator_won"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "details": err.Error()})
	}
	if req.CreatorWon == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "creator_won is required"})
	}

	w, err := s.ResolveWager(callerID, *req.CreatorWon)
	if err != nil {
		return wagerError(c, err)
	}
	return c.JSON(w)
}

// HandleGet returns the creator's current wager.
func (s *WagerService) HandleGet(c *fiber.Ctx) error {
	creatorID := c.Params("creator_id")
	w, err := findCurrent(s.DB, creatorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}
	if w == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no wager exists for this creator"})
	}
	return c.JSON(s.decorate(*w))
}

// HandleList returns open wagers, decorated with player display names.
func (s *WagerService) HandleList(c *fiber.Ctx) error {
	var wagers []models.Wager
	if err := s.DB.Where("status = ?", models.WagerStatusOpen).
		Order("created_at DESC").Limit(100).Find(&wagers).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
	}

	res := make([]fiber.Map, len(wagers))
	for i, w := range wagers {
		res[i] = s.decorate(w)
	}
	return c.JSON(fiber.Map{"wagers": res, "count": len(res)})
}

func (s *WagerService) decorate(w models.Wager) fiber.Map {
	out := fiber.Map{"wager": w}
	var creator models.PlayerMirror
	if err := s.DB.Where("external_user_id = ?", w.CreatorID).First(&creator).Error; err == nil {
		out["creator_username"] = creator.Username
	}
	if w.OpponentID != nil {
		var opponent models.PlayerMirror
		if err := s.DB.Where("external_user_id = ?", *w.OpponentID).First(&opponent).Error; err == nil {
			out["opponent_username"] = opponent.Username
		}
	}
	return out
}

// wagerError maps guard failures to HTTP statuses.
func wagerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrWagerAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrWagerNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotAParticipant):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrWagerNotActive),
		errors.Is(err, ErrWagerStillActive),
		errors.Is(err, ErrNoOpponent),
		errors.Is(err, ErrOpponentAlreadyJoined),
		errors.Is(err, ErrJoinAmountNotMet),
		errors.Is(err, ErrNoOutcome),
		errors.Is(err, ErrAlreadyClaimed),
		errors.Is(err, ErrLengthMismatch),
		errors.Is(err, ErrWrongCollection),
		errors.Is(err, ErrInvalidJoinAmount):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrTransferRejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("❌ [WAGER] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
