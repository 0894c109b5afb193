package services

import (
	"fmt"
	"testing"

	"wager-escrow-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testEscrowSecret = "test-escrow-master-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Wager{},
		&models.EscrowAccount{},
		&models.AssetMirror{},
		&models.LedgerAccount{},
		&models.SettlementReceipt{},
		&models.PlayerMirror{},
	))
	return db
}

func newTestEngine(t *testing.T) (*WagerService, *SettlementService, *LedgerService) {
	t.Helper()

	db := newTestDB(t)
	ledger := NewLedgerService(db)
	wagers := NewWagerService(db, ledger, testEscrowSecret)
	settlement := NewSettlementService(db, ledger, testEscrowSecret)
	return wagers, settlement, ledger
}

func mintAsset(t *testing.T, ledger *LedgerService, collection, name string, owner string) models.AssetRef {
	t.Helper()

	ref := models.AssetRef{
		CollectionCreator: "0xmint",
		Collection:        collection,
		Name:              name,
		Version:           0,
	}
	_, err := ledger.Mint(ref, owner)
	require.NoError(t, err)
	return ref
}

func optIn(t *testing.T, ledger *LedgerService, address string) {
	t.Helper()
	require.NoError(t, ledger.OptInDirectReceive(ledger.DB, address, false))
}

func ownerOf(t *testing.T, db *gorm.DB, ref models.AssetRef) string {
	t.Helper()

	var asset models.AssetMirror
	require.NoError(t, db.Where(
		"collection_creator = ? AND collection = ? AND name = ? AND version = ?",
		ref.CollectionCreator, ref.Collection, ref.Name, ref.Version,
	).First(&asset).Error)
	return asset.OwnerAddress
}

// mintStake mints n assets from one collection for owner.
func mintStake(t *testing.T, ledger *LedgerService, collection, owner string, n int) []models.AssetRef {
	t.Helper()

	refs := make([]models.AssetRef, n)
	for i := range refs {
		refs[i] = mintAsset(t, ledger, collection, fmt.Sprintf("%s #%d", collection, i+1), owner)
	}
	return refs
}
