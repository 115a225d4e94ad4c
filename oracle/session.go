package oracle

import (
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/protocol"
)

// Status is a game session's phase, mirroring the lifecycle in the
// data model: Created implicitly happens inside CreateGame, so the
// first observable status is WaitingForOpponent.
type Status uint8

const (
	WaitingForOpponent Status = iota
	InvoicesPending
	EncryptedPreimagesPending
	CommitPending
	RevealPending
	Judged
	Archived
)

func (s Status) String() string {
	switch s {
	case WaitingForOpponent:
		return "WaitingForOpponent"
	case InvoicesPending:
		return "InvoicesPending"
	case EncryptedPreimagesPending:
		return "EncryptedPreimagesPending"
	case CommitPending:
		return "CommitPending"
	case RevealPending:
		return "RevealPending"
	case Judged:
		return "Judged"
	case Archived:
		return "Archived"
	default:
		return "Unknown"
	}
}

type invoiceRecord struct {
	paymentHash [32]byte
	amount      int64
}

type reveal struct {
	action judge.Action
	salt   [32]byte
}

// session is a single game's oracle-side state. Every field after
// creation is mutated only while holding mu, per the per-game
// critical-section requirement. The engine-level map lock may be held
// while taking a session's lock (ListAvailable does), but is never
// taken while a session's lock is held.
type session struct {
	mu sync.Mutex

	id       protocol.GameID
	kind     judge.Kind
	stake    int64
	rangeMax uint8
	timeout  time.Duration

	r          secp256k1.ModNScalar
	R          *secp256k1.PublicKey
	nonceUsed  bool
	oracleSecret *judge.OracleSecret

	playerA protocol.PlayerID
	playerB protocol.PlayerID

	status    Status
	createdAt time.Time

	invoiceA *invoiceRecord
	invoiceB *invoiceRecord

	encA *[32]byte
	encB *[32]byte

	commitA *[32]byte
	commitB *[32]byte

	revealA *reveal
	revealB *reveal

	revealDeadline time.Time

	result *protocol.VerdictMessage
}

func (s *session) oracleCommitment() *[32]byte {
	if s.oracleSecret == nil {
		return nil
	}
	c := s.oracleSecret.Commitment()
	return &c
}

func (s *session) invoiceFor(role protocol.Role) *invoiceRecord {
	if role == protocol.PlayerA {
		return s.invoiceA
	}
	return s.invoiceB
}

func (s *session) setInvoice(role protocol.Role, rec *invoiceRecord) {
	if role == protocol.PlayerA {
		s.invoiceA = rec
	} else {
		s.invoiceB = rec
	}
}

func (s *session) encFor(role protocol.Role) *[32]byte {
	if role == protocol.PlayerA {
		return s.encA
	}
	return s.encB
}

func (s *session) setEnc(role protocol.Role, enc [32]byte) {
	if role == protocol.PlayerA {
		s.encA = &enc
	} else {
		s.encB = &enc
	}
}

func (s *session) commitFor(role protocol.Role) *[32]byte {
	if role == protocol.PlayerA {
		return s.commitA
	}
	return s.commitB
}

func (s *session) setCommit(role protocol.Role, c [32]byte) {
	if role == protocol.PlayerA {
		s.commitA = &c
	} else {
		s.commitB = &c
	}
}

func (s *session) revealFor(role protocol.Role) *reveal {
	if role == protocol.PlayerA {
		return s.revealA
	}
	return s.revealB
}

func (s *session) setReveal(role protocol.Role, r *reveal) {
	if role == protocol.PlayerA {
		s.revealA = r
	} else {
		s.revealB = r
	}
}

func (s *session) availableSnapshot() protocol.AvailableGame {
	return protocol.AvailableGame{
		GameID:    s.id,
		Kind:      s.kind,
		Stake:     s.stake,
		CreatedAt: s.createdAt.Unix(),
	}
}
