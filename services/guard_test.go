package services

import (
	"testing"

	"wager-escrow-system/models"

	"github.com/stretchr/testify/assert"
)

func openWager() *models.Wager {
	return &models.Wager{
		ID:             "w1",
		CreatorID:      "creator",
		JoinCollection: "Peer Collection",
		JoinAmount:     2,
		Status:         models.WagerStatusOpen,
	}
}

func joinedWager() *models.Wager {
	w := openWager()
	opponent := "opponent"
	w.OpponentID = &opponent
	w.Status = models.WagerStatusJoined
	return w
}

func TestExistenceGuards(t *testing.T) {
	assert.NoError(t, MustNotExist(nil))
	assert.ErrorIs(t, MustNotExist(openWager()), ErrWagerAlreadyExists)

	assert.NoError(t, MustExist(openWager()))
	assert.ErrorIs(t, MustExist(nil), ErrWagerNotFound)
}

func TestActivityGuards(t *testing.T) {
	w := openWager()
	assert.NoError(t, MustBeActive(w))
	assert.ErrorIs(t, MustNotBeActive(w), ErrWagerStillActive)

	w.Status = models.WagerStatusResolved
	assert.ErrorIs(t, MustBeActive(w), ErrWagerNotActive)
	assert.NoError(t, MustNotBeActive(w))

	w.Status = models.WagerStatusCancelled
	assert.ErrorIs(t, MustBeActive(w), ErrWagerNotActive)
}

func TestOpponentGuards(t *testing.T) {
	assert.NoError(t, MustNotHaveOpponent(openWager()))
	assert.ErrorIs(t, MustHaveOpponent(openWager()), ErrNoOpponent)

	assert.NoError(t, MustHaveOpponent(joinedWager()))
	assert.ErrorIs(t, MustNotHaveOpponent(joinedWager()), ErrOpponentAlreadyJoined)
}

func TestJoinAmountMet(t *testing.T) {
	w := openWager() // requires 2
	assert.ErrorIs(t, JoinAmountMet(w, 1), ErrJoinAmountNotMet)
	assert.NoError(t, JoinAmountMet(w, 2))
	assert.ErrorIs(t, JoinAmountMet(w, 3), ErrJoinAmountNotMet)
	assert.ErrorIs(t, JoinAmountMet(w, 0), ErrJoinAmountNotMet)
}

func TestOutcomeAndClaimGuards(t *testing.T) {
	w := joinedWager()
	assert.ErrorIs(t, MustHaveOutcome(w), ErrNoOutcome)

	won := true
	w.CreatorWon = &won
	w.Status = models.WagerStatusResolved
	assert.NoError(t, MustHaveOutcome(w))
	assert.NoError(t, MustNotHaveClaimed(w))

	w.Status = models.WagerStatusClaimed
	assert.ErrorIs(t, MustNotHaveClaimed(w), ErrAlreadyClaimed)
}

func TestMustBeAParticipant(t *testing.T) {
	w := joinedWager()
	assert.NoError(t, MustBeAParticipant(w, "creator"))
	assert.NoError(t, MustBeAParticipant(w, "opponent"))
	assert.ErrorIs(t, MustBeAParticipant(w, "bystander"), ErrNotAParticipant)

	// before join only the creator is a participant
	assert.ErrorIs(t, MustBeAParticipant(openWager(), "opponent"), ErrNotAParticipant)
}

func TestEqualLengths(t *testing.T) {
	assert.NoError(t, EqualLengths(nil, nil, nil, nil))
	assert.NoError(t, EqualLengths(
		[]string{"a", "b"}, []string{"c", "c"}, []string{"n1", "n2"}, []uint64{0, 0},
	))
	assert.ErrorIs(t, EqualLengths(
		[]string{"a", "b"}, []string{"c"}, []string{"n1", "n2"}, []uint64{0, 0},
	), ErrLengthMismatch)
	assert.ErrorIs(t, EqualLengths(
		[]string{"a"}, []string{"c"}, []string{"n1"}, []uint64{},
	), ErrLengthMismatch)
}

func TestSameCollection(t *testing.T) {
	w := openWager()

	ok := []models.AssetRef{
		{Collection: "Peer Collection", Name: "a"},
		{Collection: "Peer Collection", Name: "b"},
	}
	assert.NoError(t, SameCollection(w, ok))

	mixed := []models.AssetRef{
		{Collection: "Peer Collection", Name: "a"},
		{Collection: "Other Collection", Name: "b"},
	}
	assert.ErrorIs(t, SameCollection(w, mixed), ErrWrongCollection)

	// unicode composition must not defeat the check
	composed := []models.AssetRef{{Collection: "Peer Collection", Name: "a"}}
	w.JoinCollection = models.CanonicalCollection(" Peer Collection ")
	assert.NoError(t, SameCollection(w, composed))
}
