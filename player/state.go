package player

import (
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/protocol"
)

// Phase mirrors the player's local view of the seven-phase protocol,
// generalized from client/game.go's per-match local state pattern.
type Phase uint8

const (
	WaitingForOpponent Phase = iota
	ExchangingInvoices
	ExchangingEncryptedPreimages
	WaitingForAction
	Committed
	Revealed
	WaitingForResult
	Settled
	Cancelled
	Fraud
)

func (p Phase) String() string {
	switch p {
	case WaitingForOpponent:
		return "WaitingForOpponent"
	case ExchangingInvoices:
		return "ExchangingInvoices"
	case ExchangingEncryptedPreimages:
		return "ExchangingEncryptedPreimages"
	case WaitingForAction:
		return "WaitingForAction"
	case Committed:
		return "Committed"
	case Revealed:
		return "Revealed"
	case WaitingForResult:
		return "WaitingForResult"
	case Settled:
		return "Settled"
	case Cancelled:
		return "Cancelled"
	case Fraud:
		return "Fraud"
	default:
		return "Unknown"
	}
}

// localGame is one game's state as seen by a single player: the
// secrets it alone owns (preimage, salt, action) plus whatever public
// material it has learned from the oracle.
type localGame struct {
	mu sync.Mutex

	id       protocol.GameID
	kind     judge.Kind
	role     protocol.Role
	stake    int64
	rangeMax uint8

	preimage    gamecrypto.Preimage
	salt        gamecrypto.Salt
	paymentHash gamecrypto.Hash
	action      judge.Action
	actionSet   bool

	oraclePub        *secp256k1.PublicKey
	R                *secp256k1.PublicKey
	oracleCommitment *[32]byte

	opponentPaymentHash *[32]byte
	opponentInvoiceAmt  int64

	phase Phase

	result *protocol.VerdictMessage
	fraud  *FraudEvidence
}
