// Package player implements a single player's side of a game: it owns
// the preimage/salt/action secrets, drives the seven-phase protocol
// against the oracle, and settles or cancels through the hold-invoice
// client. Players never address each other directly.
package player

import (
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/protocol"
)

// OracleClient is the hub-and-spoke surface a player engine drives.
// *oracle.Engine satisfies this structurally; the interface exists so
// a player never imports the oracle package directly, matching the
// spec's redesign flag that hub-and-spoke must not collapse into a
// direct peer-to-peer dependency.
type OracleClient interface {
	PublishPubkey() [33]byte
	CreateGame(req protocol.CreateGameRequest) (protocol.CreateGameResponse, error)
	ListAvailable(kindFilter *judge.Kind) []protocol.AvailableGame
	Join(req protocol.JoinGameRequest) (protocol.JoinGameResponse, error)
	SubmitInvoice(req protocol.SubmitInvoiceRequest) error
	GetInvoice(req protocol.GetInvoiceRequest) (protocol.GetInvoiceResponse, error)
	SubmitEncryptedPreimage(req protocol.SubmitEncryptedPreimageRequest) error
	GetEncryptedPreimage(req protocol.GetEncryptedPreimageRequest) ([32]byte, error)
	GetCommit(req protocol.GetCommitRequest) ([32]byte, error)
	SubmitCommit(req protocol.SubmitCommitRequest) error
	SubmitReveal(req protocol.SubmitRevealRequest) error
	GetResult(req protocol.GetResultRequest) (protocol.GetResultResponse, error)
}
