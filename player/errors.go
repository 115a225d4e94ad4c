package player

import "errors"

var (
	ErrGameNotFound          = errors.New("local game state not found")
	ErrResultPending         = errors.New("oracle has not yet produced a verdict")
	ErrOpponentInvoiceNotReady = errors.New("opponent has not submitted its invoice yet")
	ErrOracleSignatureInvalid = errors.New("oracle verdict signature failed verification")
	ErrPreimageMismatch       = errors.New("decrypted opponent preimage does not match its payment hash")
	ErrOracleFraud            = errors.New("oracle verdict disagrees with local re-judging")
	ErrWrongPhase             = errors.New("operation not valid in the game's current local phase")
)
