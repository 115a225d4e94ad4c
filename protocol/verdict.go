package protocol

import (
	"bytes"

	"github.com/quake/fiber-demo/judge"
)

// GameData is the verdict's disclosed per-kind payload, encoded
// immediately after kind_tag in the canonical verdict message.
// Exactly one of the two variants is populated according to Kind; for
// a timeout draw, Timeout is set and both variants are ignored.
type GameData struct {
	Timeout bool

	// RPS / GuessNumber action disclosure.
	ActionA uint8
	ActionB uint8

	// GuessNumber only.
	Secret uint8
	Nonce  [32]byte
}

// RPSGameData builds the disclosed game data for a resolved RPS round.
func RPSGameData(a, b judge.RPSMove) GameData {
	return GameData{ActionA: uint8(a), ActionB: uint8(b)}
}

// GuessNumberGameData builds the disclosed game data for a resolved
// GuessNumber round.
func GuessNumberGameData(a, b uint8, secret judge.OracleSecret) GameData {
	return GameData{ActionA: a, ActionB: b, Secret: secret.Secret, Nonce: secret.Nonce}
}

// TimeoutGameData builds the disclosed game data for a timeout draw.
func TimeoutGameData() GameData {
	return GameData{Timeout: true}
}

// Bytes encodes GameData per the wire layout for kind: RPS is
// action_a(1)||action_b(1); GuessNumber is
// secret(1)||nonce(32)||action_a(1)||action_b(1); a timeout payload is
// the single byte 0x00 regardless of kind, matching the
// unambiguous-from-any-non-timeout-Draw requirement.
func (d GameData) Bytes(kind judge.Kind) []byte {
	if d.Timeout {
		return []byte{0x00}
	}
	switch kind {
	case judge.RockPaperScissors:
		return []byte{d.ActionA, d.ActionB}
	case judge.GuessNumber:
		buf := make([]byte, 0, 1+32+1+1)
		buf = append(buf, d.Secret)
		buf = append(buf, d.Nonce[:]...)
		buf = append(buf, d.ActionA, d.ActionB)
		return buf
	default:
		return nil
	}
}

// EncodeVerdictMessage builds the canonical verdict message
// game_id(16) || kind_tag(1) || game_data || verdict_tag_bytes,
// independently re-derivable by either player.
// Note: this message is audit/evidence material disclosed alongside
// the signature, distinct from the narrower (R, O, game_id, tag)
// challenge hash that the Schnorr signature itself commits to — the
// latter must be computable before game_data exists, since players
// precompute signature points before either action is known.
func EncodeVerdictMessage(gameID GameID, kind judge.Kind, data GameData, tag VerdictTag) []byte {
	var buf bytes.Buffer
	buf.Write(gameID[:])
	buf.WriteByte(kind.KindTag())
	buf.Write(data.Bytes(kind))
	if data.Timeout {
		buf.WriteString("timeout")
	}
	buf.WriteString(string(tag))
	return buf.Bytes()
}
