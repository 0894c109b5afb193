package services

import (
	"os"
	"testing"

	"wager-escrow-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp mirrors t.Chdir(t.TempDir()) for toolchains before Go 1.24.
func chdirTemp(t *testing.T) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

// resolvedWager walks a wager through create → join → resolve.
func resolvedWager(t *testing.T, wagers *WagerService, ledger *LedgerService, joinAmount uint, creatorWon bool) *models.Wager {
	t.Helper()

	ref := mintAsset(t, ledger, "Swords", "Excalibur", creator)
	_, err := wagers.CreateWager(creator, ref, "Shields", joinAmount)
	require.NoError(t, err)

	stake := mintStake(t, ledger, "Shields", opponent, int(joinAmount))
	_, err = wagers.JoinWager(opponent, creator, stake)
	require.NoError(t, err)

	w, err := wagers.ResolveWager(creator, creatorWon)
	require.NoError(t, err)
	return w
}

func TestClaimBeforeResolveFails(t *testing.T) {
	wagers, settlement, ledger := newTestEngine(t)
	ref := mintAsset(t, ledger, "Swords", "Excalibur", creator)
	_, err := wagers.CreateWager(creator, ref, "Shields", 1)
	require.NoError(t, err)

	_, _, err = settlement.ClaimWager(creator, creator)
	assert.ErrorIs(t, err, ErrWagerStillActive)

	stake := mintStake(t, ledger, "Shields", opponent, 1)
	_, err = wagers.JoinWager(opponent, creator, stake)
	require.NoError(t, err)

	_, _, err = settlement.ClaimWager(opponent, creator)
	assert.ErrorIs(t, err, ErrWagerStillActive)
}

func TestClaimByNonParticipant(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	resolvedWager(t, wagers, ledger, 1, true)

	_, _, err := settlement.ClaimWager("0xbystander", creator)
	assert.ErrorIs(t, err, ErrNotAParticipant)
}

func TestWinnerClaimReleasesWholePool(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	w := resolvedWager(t, wagers, ledger, 2, true)
	optIn(t, ledger, creator)

	claimed, payout, err := settlement.ClaimWager(creator, creator)
	require.NoError(t, err)
	assert.True(t, payout)
	assert.Equal(t, models.WagerStatusClaimed, claimed.Status)
	assert.NotNil(t, claimed.ClaimedAt)

	// creator asset + both opponent assets landed on the winner
	var held int64
	require.NoError(t, wagers.DB.Model(&models.AssetMirror{}).
		Where("owner_address = ?", creator).Count(&held).Error)
	assert.EqualValues(t, 3, held)

	var account models.EscrowAccount
	require.NoError(t, wagers.DB.Where("address = ?", w.EscrowAddress).First(&account).Error)
	assert.Zero(t, account.Holdings)

	var receipt models.SettlementReceipt
	require.NoError(t, wagers.DB.Where("wager_id = ?", w.ID).First(&receipt).Error)
	assert.True(t, receipt.Payout)
	assert.Equal(t, 3, receipt.AssetCount)
	assert.Equal(t, creator, receipt.WinnerID)
}

func TestOpponentWinsAndClaims(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	w := resolvedWager(t, wagers, ledger, 1, false)
	optIn(t, ledger, opponent)

	_, payout, err := settlement.ClaimWager(opponent, creator)
	require.NoError(t, err)
	assert.True(t, payout)

	assert.Equal(t, opponent, ownerOf(t, wagers.DB, w.CreatorAsset()))
	staked, err := w.OpponentAssets()
	require.NoError(t, err)
	for _, r := range staked {
		assert.Equal(t, opponent, ownerOf(t, wagers.DB, r))
	}
}

func TestLoserClaimClosesWithoutPayout(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	w := resolvedWager(t, wagers, ledger, 2, true)

	// the losing opponent may close the wager out; nothing moves
	claimed, payout, err := settlement.ClaimWager(opponent, creator)
	require.NoError(t, err)
	assert.False(t, payout)
	assert.Equal(t, models.WagerStatusClaimed, claimed.Status)

	var escrowHeld int64
	require.NoError(t, wagers.DB.Model(&models.AssetMirror{}).
		Where("owner_address = ?", w.EscrowAddress).Count(&escrowHeld).Error)
	assert.EqualValues(t, 3, escrowHeld, "pool stays in escrow after a close-out")

	var receipt models.SettlementReceipt
	require.NoError(t, wagers.DB.Where("wager_id = ?", w.ID).First(&receipt).Error)
	assert.False(t, receipt.Payout)
	assert.Zero(t, receipt.AssetCount)
	assert.Equal(t, creator, receipt.WinnerID)
	assert.Equal(t, opponent, receipt.ClaimedBy)
}

func TestSinglePayoutAcrossRepeatedClaims(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	resolvedWager(t, wagers, ledger, 2, true)
	optIn(t, ledger, creator)

	_, payout, err := settlement.ClaimWager(creator, creator)
	require.NoError(t, err)
	assert.True(t, payout)

	// every further claim by anyone is rejected; balances never change again
	_, _, err = settlement.ClaimWager(creator, creator)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	_, _, err = settlement.ClaimWager(opponent, creator)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	var held int64
	require.NoError(t, wagers.DB.Model(&models.AssetMirror{}).
		Where("owner_address = ?", creator).Count(&held).Error)
	assert.EqualValues(t, 3, held)
}

func TestLoserCloseThenWinnerClaimRejected(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	w := resolvedWager(t, wagers, ledger, 1, true)
	optIn(t, ledger, creator)

	_, payout, err := settlement.ClaimWager(opponent, creator)
	require.NoError(t, err)
	assert.False(t, payout)

	// the close-out marker is final: even the winner cannot claim afterwards
	_, _, err = settlement.ClaimWager(creator, creator)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	var escrowHeld int64
	require.NoError(t, wagers.DB.Model(&models.AssetMirror{}).
		Where("owner_address = ?", w.EscrowAddress).Count(&escrowHeld).Error)
	assert.EqualValues(t, 2, escrowHeld)
}

func TestClaimRequiresWinnerOptIn(t *testing.T) {
	chdirTemp(t)
	wagers, settlement, ledger := newTestEngine(t)
	w := resolvedWager(t, wagers, ledger, 1, true)

	// winner never authorized direct receive — the whole claim aborts
	_, _, err := settlement.ClaimWager(creator, creator)
	assert.ErrorIs(t, err, ErrTransferRejected)

	current, ferr := findCurrent(wagers.DB, creator)
	require.NoError(t, ferr)
	require.NotNil(t, current)
	assert.Equal(t, models.WagerStatusResolved, current.Status)

	var escrowHeld int64
	require.NoError(t, wagers.DB.Model(&models.AssetMirror{}).
		Where("owner_address = ?", w.EscrowAddress).Count(&escrowHeld).Error)
	assert.EqualValues(t, 2, escrowHeld)
}
