// services/guard.go
package services

import (
	"errors"

	"wager-escrow-system/models"
)

// Named precondition failures. Every mutating operation runs its guards
// before touching state or custody; any failure aborts the whole operation.
var (
	ErrWagerAlreadyExists    = errors.New("a wager already exists for this creator")
	ErrWagerNotFound         = errors.New("no wager exists for this creator")
	ErrWagerNotActive        = errors.New("wager is no longer active")
	ErrWagerStillActive      = errors.New("wager is still active")
	ErrNoOpponent            = errors.New("wager has no opponent")
	ErrOpponentAlreadyJoined = errors.New("wager already has an opponent")
	ErrJoinAmountNotMet      = errors.New("staked asset count does not match the join requirement")
	ErrNoOutcome             = errors.New("wager has no recorded outcome")
	ErrAlreadyClaimed        = errors.New("wager has already been claimed")
	ErrNotAParticipant       = errors.New("caller is not a participant in this wager")
	ErrLengthMismatch        = errors.New("asset descriptor lists must have equal lengths")
	ErrWrongCollection       = errors.New("asset is not from the required join collection")

	// Bubbled up from the asset ledger; aborts the surrounding transaction.
	ErrTransferRejected = errors.New("asset ledger rejected the transfer")

	ErrBadCapability = errors.New("capability does not authorize this escrow account")
)

// MustNotExist fails when a non-terminal wager already occupies the key.
func MustNotExist(w *models.Wager) error {
	if w != nil {
		return ErrWagerAlreadyExists
	}
	return nil
}

func MustExist(w *models.Wager) error {
	if w == nil {
		return ErrWagerNotFound
	}
	return nil
}

func MustBeActive(w *models.Wager) error {
	if !w.Active() {
		return ErrWagerNotActive
	}
	return nil
}

func MustNotBeActive(w *models.Wager) error {
	if w.Active() {
		return ErrWagerStillActive
	}
	return nil
}

func MustHaveOpponent(w *models.Wager) error {
	if w.OpponentID == nil {
		return ErrNoOpponent
	}
	return nil
}

func MustNotHaveOpponent(w *models.Wager) error {
	if w.OpponentID != nil {
		return ErrOpponentAlreadyJoined
	}
	return nil
}

func JoinAmountMet(w *models.Wager, count int) error {
	if count < 0 || uint(count) != w.JoinAmount {
		return ErrJoinAmountNotMet
	}
	return nil
}

func MustHaveOutcome(w *models.Wager) error {
	if w.CreatorWon == nil {
		return ErrNoOutcome
	}
	return nil
}

func MustNotHaveClaimed(w *models.Wager) error {
	if w.Status == models.WagerStatusClaimed {
		return ErrAlreadyClaimed
	}
	return nil
}

func MustBeAParticipant(w *models.Wager, callerID string) error {
	if callerID == w.CreatorID {
		return nil
	}
	if w.OpponentID != nil && callerID == *w.OpponentID {
		return nil
	}
	return ErrNotAParticipant
}

// EqualLengths validates the shape of the four parallel asset descriptor
// lists. Pure input validation, independent of wager state.
func EqualLengths(creators, collections, names []string, versions []uint64) error {
	n := len(creators)
	if len(collections) != n || len(names) != n || len(versions) != n {
		return ErrLengthMismatch
	}
	return nil
}

// SameCollection requires every staked asset to come from the collection the
// creator declared as the join price.
func SameCollection(w *models.Wager, refs []models.AssetRef) error {
	want := models.CanonicalCollection(w.JoinCollection)
	for _, ref := range refs {
		if models.CanonicalCollection(ref.Collection) != want {
			return ErrWrongCollection
		}
	}
	return nil
}
