package protocol

import "github.com/quake/fiber-demo/judge"

// HoldInvoiceDescriptor is the opaque-to-the-core invoice handle
// exchanged between players via the oracle.
type HoldInvoiceDescriptor struct {
	InvoiceString string `json:"invoice_string"`
	PaymentHash   [32]byte `json:"payment_hash"`
	Amount        int64  `json:"amount"`
	ExpirySeconds int64  `json:"expiry_seconds"`
}

// AvailableGame summarizes a lobby entry for list_available.
type AvailableGame struct {
	GameID    GameID    `json:"id"`
	Kind      judge.Kind `json:"kind"`
	Stake     int64     `json:"stake"`
	CreatedAt int64     `json:"created_at"`
}

// CreateGameRequest is operation 2, create_game.
type CreateGameRequest struct {
	PlayerA        PlayerID   `json:"player_a_id"`
	Kind           judge.Kind `json:"kind"`
	Stake          int64      `json:"stake"`
	TimeoutSeconds int64      `json:"timeout_seconds"`
	RangeMax       uint8      `json:"range_max,omitempty"`
}

// CreateGameResponse echoes the public session parameters a player
// needs to begin computing signature points.
type CreateGameResponse struct {
	GameID           GameID  `json:"game_id"`
	Pubkey           [33]byte `json:"pubkey"`
	CommitmentPoint  [33]byte `json:"commitment_point"`
	OracleCommitment *[32]byte `json:"oracle_commitment,omitempty"`
}

// JoinGameRequest is operation 4, join.
type JoinGameRequest struct {
	GameID   GameID   `json:"game_id"`
	PlayerB  PlayerID `json:"player_b_id"`
}

// JoinGameResponse mirrors CreateGameResponse's public parameters.
type JoinGameResponse struct {
	Pubkey           [33]byte  `json:"pubkey"`
	CommitmentPoint  [33]byte  `json:"commitment_point"`
	OracleCommitment *[32]byte `json:"oracle_commitment,omitempty"`
}

// SubmitInvoiceRequest is operation 5, invoice.
type SubmitInvoiceRequest struct {
	GameID      GameID   `json:"game_id"`
	Player      Role     `json:"player"`
	PaymentHash [32]byte `json:"payment_hash"`
	Amount      int64    `json:"amount"`
}

// GetInvoiceRequest is operation 6, invoice/get.
type GetInvoiceRequest struct {
	GameID   GameID `json:"game_id"`
	Opponent Role   `json:"opponent"`
}

// GetInvoiceResponse is the opponent's recorded invoice fields.
type GetInvoiceResponse struct {
	PaymentHash [32]byte `json:"payment_hash"`
	Amount      int64    `json:"amount"`
}

// SubmitEncryptedPreimageRequest is operation 7, enc_preimage.
type SubmitEncryptedPreimageRequest struct {
	GameID GameID   `json:"game_id"`
	Player Role     `json:"player"`
	Enc    [32]byte `json:"enc"`
}

// GetEncryptedPreimageRequest is operation 8, enc_preimage/get.
type GetEncryptedPreimageRequest struct {
	GameID   GameID `json:"game_id"`
	Opponent Role   `json:"opponent"`
}

// GetCommitRequest fetches the opponent's already-submitted
// commitment, the witness value a revealing player must quote back.
// The canonical oracle message surface leaves this accessor implicit
// alongside invoice/get and enc_preimage/get; it is named here because
// the required commit_a/commit_b reveal witnesses have no other source.
type GetCommitRequest struct {
	GameID   GameID `json:"game_id"`
	Opponent Role   `json:"opponent"`
}

// SubmitCommitRequest is operation 9, commit.
type SubmitCommitRequest struct {
	GameID GameID   `json:"game_id"`
	Player Role     `json:"player"`
	Commit [32]byte `json:"commit"`
}

// SubmitRevealRequest is operation 10, reveal. CommitA/CommitB are the
// witness copies the oracle checks against what it already holds,
// defending against reveal-binding attacks.
type SubmitRevealRequest struct {
	GameID  GameID      `json:"game_id"`
	Player  Role        `json:"player"`
	Action  judge.Action `json:"action"`
	Salt    [32]byte    `json:"salt"`
	CommitA [32]byte    `json:"commit_a"`
	CommitB [32]byte    `json:"commit_b"`
}

// GetResultRequest is operation 11, result.
type GetResultRequest struct {
	GameID GameID `json:"game_id"`
}

// VerdictMessage is the oracle's disclosed verdict once both reveals
// are in (or the reveal deadline passed): the canonical message's
// structured fields plus the 64-byte signature over the narrower
// (R, O, game_id, tag) challenge described in EncodeVerdictMessage.
type VerdictMessage struct {
	GameID    GameID        `json:"game_id"`
	Kind      judge.Kind    `json:"kind"`
	GameData  GameData      `json:"game_data"`
	Verdict   VerdictTag    `json:"verdict"`
	Signature [64]byte      `json:"signature"`
}

// GetResultResponse is either Pending or a populated Result.
type GetResultResponse struct {
	Pending bool            `json:"pending"`
	Result  *VerdictMessage `json:"result,omitempty"`
}
