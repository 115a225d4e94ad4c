package oracle

import "errors"

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrNotWaiting         = errors.New("game is not waiting for an opponent")
	ErrAlreadyHasPlayerB  = errors.New("game already has a player B")
	ErrWrongPhase         = errors.New("operation not valid in the game's current phase")
	ErrUnequalStakes      = errors.New("invoice amount does not match the game stake")
	ErrDuplicateInvoice   = errors.New("invoice already submitted for this player")
	ErrDuplicatePreimage  = errors.New("encrypted preimage already submitted for this player")
	ErrDuplicateCommit    = errors.New("commit already submitted for this player")
	ErrOpponentNotReady   = errors.New("opponent has not submitted yet")
	ErrCommitMismatch     = errors.New("revealed action/salt does not match the held commitment")
	ErrWitnessMismatch    = errors.New("quoted commit_a/commit_b do not match what the oracle holds")
	ErrDuplicateReveal    = errors.New("reveal already submitted for this player")
	ErrInvalidAction      = errors.New("action is invalid for this game's kind")
	ErrUnknownRole        = errors.New("player role must be A or B")
	ErrNonceAlreadyUsed   = errors.New("per-game nonce has already been consumed")
)
