// Package protocol defines the oracle/player wire contract: game
// identifiers, player roles, the canonical verdict message encoding,
// and the request/response shapes exchanged through the oracle's
// hub-and-spoke API. Structs are JSON-tagged so a thin transport
// adapter could serialize them unmodified, but no transport is defined
// here.
package protocol

import (
	"github.com/google/uuid"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/judge"
)

// GameID is the 16-byte UUIDv4 identifying a game session, shared with
// gamecrypto's signature-point math.
type GameID = gamecrypto.GameID

// NewGameID generates a fresh random game id.
func NewGameID() GameID {
	id := uuid.New()
	var g GameID
	copy(g[:], id[:])
	return g
}

// PlayerID identifies a player's long-term identity. The core treats
// it as an opaque comparable token; no signatures enter the protocol
// from players.
type PlayerID string

// Role is a player's seat in a game.
type Role uint8

const (
	PlayerA Role = iota
	PlayerB
)

func (r Role) String() string {
	if r == PlayerA {
		return "A"
	}
	return "B"
}

// Opponent returns the other seat.
func (r Role) Opponent() Role {
	if r == PlayerA {
		return PlayerB
	}
	return PlayerA
}

// VerdictTag mirrors gamecrypto.VerdictTag so callers outside
// gamecrypto don't need to import it just to name a verdict.
type VerdictTag = gamecrypto.VerdictTag

// ResultToTag maps a judge.Result to its wire/signing verdict tag.
func ResultToTag(r judge.Result) VerdictTag {
	switch r {
	case judge.AWins:
		return gamecrypto.TagAWins
	case judge.BWins:
		return gamecrypto.TagBWins
	default:
		return gamecrypto.TagDraw
	}
}
