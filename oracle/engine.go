// Package oracle implements the hub-and-spoke game oracle: a lobby of
// games, commitment/reveal verification, result judging, and Schnorr
// signing of the verdict over the per-game nonce. The oracle is
// stateless with respect to funds — it never sees a preimage.
package oracle

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/jonboulle/clockwork"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/protocol"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Engine holds every live and archived game session, keyed by id, with
// mutations serialized per game rather than behind one global lock.
type Engine struct {
	keypair *gamecrypto.Keypair
	clock   clockwork.Clock
	log     slog.Logger

	mu    sync.RWMutex
	games map[protocol.GameID]*session
}

// NewEngine constructs an oracle bound to a single long-term keypair.
func NewEngine(keypair *gamecrypto.Keypair, clock clockwork.Clock, log slog.Logger) *Engine {
	return &Engine{
		keypair: keypair,
		clock:   clock,
		log:     log,
		games:   make(map[protocol.GameID]*session),
	}
}

func compress33(p *secp256k1.PublicKey) [33]byte {
	var out [33]byte
	copy(out[:], p.SerializeCompressed())
	return out
}

func validRole(r protocol.Role) bool {
	return r == protocol.PlayerA || r == protocol.PlayerB
}

// PublishPubkey is operation 1.
func (e *Engine) PublishPubkey() [33]byte {
	return compress33(e.keypair.Pub)
}

func (e *Engine) get(id protocol.GameID) (*session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return sess, nil
}

// CreateGame is operation 2.
func (e *Engine) CreateGame(req protocol.CreateGameRequest) (protocol.CreateGameResponse, error) {
	rangeMax := req.RangeMax
	if rangeMax == 0 {
		rangeMax = judge.MaxGuessDefault
	}

	gameID := protocol.NewGameID()
	r, R := e.keypair.DeriveNonce(gameID)

	var secret *judge.OracleSecret
	if req.Kind.RequiresOracleSecret() {
		s, err := judge.GenerateOracleSecret(rangeMax)
		if err != nil {
			return protocol.CreateGameResponse{}, fmt.Errorf("create game: %w", err)
		}
		secret = &s
	}

	sess := &session{
		id:           gameID,
		kind:         req.Kind,
		stake:        req.Stake,
		rangeMax:     rangeMax,
		timeout:      time.Duration(req.TimeoutSeconds) * time.Second,
		r:            r,
		R:            R,
		oracleSecret: secret,
		playerA:      req.PlayerA,
		status:       WaitingForOpponent,
		createdAt:    e.clock.Now(),
	}

	e.mu.Lock()
	e.games[gameID] = sess
	e.mu.Unlock()

	e.log.Debugf("oracle: created game %x kind=%v stake=%d", gameID[:4], req.Kind, req.Stake)

	return protocol.CreateGameResponse{
		GameID:           gameID,
		Pubkey:           compress33(e.keypair.Pub),
		CommitmentPoint:  compress33(R),
		OracleCommitment: sess.oracleCommitment(),
	}, nil
}

// ListAvailable is operation 3. A nil kindFilter returns every game
// currently in WaitingForOpponent.
func (e *Engine) ListAvailable(kindFilter *judge.Kind) []protocol.AvailableGame {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []protocol.AvailableGame
	for _, sess := range e.games {
		sess.mu.Lock()
		if sess.status == WaitingForOpponent && (kindFilter == nil || sess.kind == *kindFilter) {
			out = append(out, sess.availableSnapshot())
		}
		sess.mu.Unlock()
	}
	return out
}

// Join is operation 4.
func (e *Engine) Join(req protocol.JoinGameRequest) (protocol.JoinGameResponse, error) {
	sess, err := e.get(req.GameID)
	if err != nil {
		return protocol.JoinGameResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != WaitingForOpponent {
		return protocol.JoinGameResponse{}, ErrNotWaiting
	}
	if sess.playerB != "" {
		return protocol.JoinGameResponse{}, ErrAlreadyHasPlayerB
	}

	sess.playerB = req.PlayerB
	sess.status = InvoicesPending

	e.log.Debugf("oracle: game %x joined by %s", sess.id[:4], req.PlayerB)

	return protocol.JoinGameResponse{
		Pubkey:           compress33(e.keypair.Pub),
		CommitmentPoint:  compress33(sess.R),
		OracleCommitment: sess.oracleCommitment(),
	}, nil
}

// SubmitInvoice is operation 5.
func (e *Engine) SubmitInvoice(req protocol.SubmitInvoiceRequest) error {
	sess, err := e.get(req.GameID)
	if err != nil {
		return err
	}

	if !validRole(req.Player) {
		return ErrUnknownRole
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// A player may register its own invoice as early as create/join,
	// before the opponent necessarily has: each player submits only
	// its own invoice, so WaitingForOpponent (player A, pre-join) and
	// InvoicesPending (either player, post-join) are both valid.
	if sess.status != WaitingForOpponent && sess.status != InvoicesPending {
		return ErrWrongPhase
	}
	if req.Amount != sess.stake {
		return ErrUnequalStakes
	}
	if sess.invoiceFor(req.Player) != nil {
		return ErrDuplicateInvoice
	}

	sess.setInvoice(req.Player, &invoiceRecord{paymentHash: req.PaymentHash, amount: req.Amount})
	if sess.invoiceA != nil && sess.invoiceB != nil {
		sess.status = EncryptedPreimagesPending
	}
	return nil
}

// GetInvoice is operation 6.
func (e *Engine) GetInvoice(req protocol.GetInvoiceRequest) (protocol.GetInvoiceResponse, error) {
	if !validRole(req.Opponent) {
		return protocol.GetInvoiceResponse{}, ErrUnknownRole
	}

	sess, err := e.get(req.GameID)
	if err != nil {
		return protocol.GetInvoiceResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	rec := sess.invoiceFor(req.Opponent)
	if rec == nil {
		return protocol.GetInvoiceResponse{}, ErrOpponentNotReady
	}
	return protocol.GetInvoiceResponse{PaymentHash: rec.paymentHash, Amount: rec.amount}, nil
}

// SubmitEncryptedPreimage is operation 7.
func (e *Engine) SubmitEncryptedPreimage(req protocol.SubmitEncryptedPreimageRequest) error {
	if !validRole(req.Player) {
		return ErrUnknownRole
	}

	sess, err := e.get(req.GameID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != EncryptedPreimagesPending {
		return ErrWrongPhase
	}
	if sess.encFor(req.Player) != nil {
		return ErrDuplicatePreimage
	}

	sess.setEnc(req.Player, req.Enc)
	if sess.encA != nil && sess.encB != nil {
		sess.status = CommitPending
	}
	return nil
}

// GetEncryptedPreimage is operation 8.
func (e *Engine) GetEncryptedPreimage(req protocol.GetEncryptedPreimageRequest) ([32]byte, error) {
	if !validRole(req.Opponent) {
		return [32]byte{}, ErrUnknownRole
	}

	sess, err := e.get(req.GameID)
	if err != nil {
		return [32]byte{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	enc := sess.encFor(req.Opponent)
	if enc == nil {
		return [32]byte{}, ErrOpponentNotReady
	}
	return *enc, nil
}

// GetCommit fetches the opponent's commitment, the witness value a
// revealing player must quote back in SubmitReveal.
func (e *Engine) GetCommit(req protocol.GetCommitRequest) ([32]byte, error) {
	if !validRole(req.Opponent) {
		return [32]byte{}, ErrUnknownRole
	}

	sess, err := e.get(req.GameID)
	if err != nil {
		return [32]byte{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	c := sess.commitFor(req.Opponent)
	if c == nil {
		return [32]byte{}, ErrOpponentNotReady
	}
	return *c, nil
}

// SubmitCommit is operation 9.
func (e *Engine) SubmitCommit(req protocol.SubmitCommitRequest) error {
	if !validRole(req.Player) {
		return ErrUnknownRole
	}

	sess, err := e.get(req.GameID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != CommitPending {
		return ErrWrongPhase
	}
	if sess.commitFor(req.Player) != nil {
		return ErrDuplicateCommit
	}

	sess.setCommit(req.Player, req.Commit)
	if sess.commitA != nil && sess.commitB != nil {
		sess.status = RevealPending
		sess.revealDeadline = e.clock.Now().Add(sess.timeout)
	}
	return nil
}

// SubmitReveal is operation 10.
func (e *Engine) SubmitReveal(req protocol.SubmitRevealRequest) error {
	if !validRole(req.Player) {
		return ErrUnknownRole
	}

	sess, err := e.get(req.GameID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := e.maybeResolve(sess, e.clock.Now()); err != nil {
		return err
	}
	if sess.status != RevealPending {
		return ErrWrongPhase
	}
	if sess.revealFor(req.Player) != nil {
		return ErrDuplicateReveal
	}

	ownCommit := sess.commitFor(req.Player)
	if ownCommit == nil {
		return ErrWrongPhase
	}
	if sess.commitA == nil || sess.commitB == nil ||
		req.CommitA != *sess.commitA || req.CommitB != *sess.commitB {
		return ErrWitnessMismatch
	}

	if err := judge.ValidateActionRange(sess.kind, req.Action, sess.rangeMax); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	actionBytes, err := req.Action.Bytes(sess.kind)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	computed := gamecrypto.Commit(actionBytes, gamecrypto.Salt(req.Salt))
	if computed != gamecrypto.Hash(*ownCommit) {
		return ErrCommitMismatch
	}

	sess.setReveal(req.Player, &reveal{action: req.Action, salt: req.Salt})
	return e.maybeResolve(sess, e.clock.Now())
}

// GetResult is operation 11.
func (e *Engine) GetResult(req protocol.GetResultRequest) (protocol.GetResultResponse, error) {
	sess, err := e.get(req.GameID)
	if err != nil {
		return protocol.GetResultResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := e.maybeResolve(sess, e.clock.Now()); err != nil {
		return protocol.GetResultResponse{}, err
	}
	if sess.result == nil {
		return protocol.GetResultResponse{Pending: true}, nil
	}
	return protocol.GetResultResponse{Result: sess.result}, nil
}

// Archive transitions a judged game out of the live set once
// settlement (external to the core) has been driven by both players.
// It is a no-op bookkeeping step; the oracle holds no funds either way.
func (e *Engine) Archive(id protocol.GameID) error {
	sess, err := e.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.status != Judged {
		return ErrWrongPhase
	}
	sess.status = Archived
	return nil
}

// maybeResolve judges the game if both reveals are present, or signs
// a timeout Draw if the reveal deadline has passed with fewer than
// two reveals. Must be called while holding sess.mu. The per-game
// nonce r is read exactly once across the engine's lifetime because
// this function never runs again once sess.result is non-nil.
func (e *Engine) maybeResolve(sess *session, now time.Time) error {
	if sess.result != nil || sess.status != RevealPending {
		return nil
	}

	bothReveals := sess.revealA != nil && sess.revealB != nil
	timedOut := !bothReveals && !sess.revealDeadline.IsZero() && now.After(sess.revealDeadline)
	if !bothReveals && !timedOut {
		return nil
	}

	var tag protocol.VerdictTag
	var data protocol.GameData
	if bothReveals {
		a, b := sess.revealA.action, sess.revealB.action
		result, err := judge.Judge(judge.Session{Kind: sess.kind, OracleSecret: oracleSecretOrZero(sess.oracleSecret)}, a, b)
		if err != nil {
			e.log.Warnf("oracle: judge failed for game %x: %v", sess.id[:4], err)
			return fmt.Errorf("judge game: %w", err)
		}
		tag = protocol.ResultToTag(result)
		data = dataForResult(sess.kind, a, b, sess.oracleSecret)
	} else {
		tag = gamecrypto.TagDraw
		data = protocol.TimeoutGameData()
	}

	if sess.nonceUsed {
		return ErrNonceAlreadyUsed
	}

	sig := e.keypair.SignVerdict(sess.r, sess.R, sess.id, tag)
	sess.nonceUsed = true
	sess.result = &protocol.VerdictMessage{
		GameID:   sess.id,
		Kind:     sess.kind,
		GameData: data,
		Verdict:  tag,
		Signature: sig,
	}
	sess.status = Judged

	e.log.Infof("oracle: game %x judged verdict=%s timeout=%v", sess.id[:4], tag, !bothReveals)
	return nil
}

func oracleSecretOrZero(s *judge.OracleSecret) judge.OracleSecret {
	if s == nil {
		return judge.OracleSecret{}
	}
	return *s
}

func dataForResult(kind judge.Kind, a, b judge.Action, secret *judge.OracleSecret) protocol.GameData {
	switch kind {
	case judge.RockPaperScissors:
		return protocol.RPSGameData(a.RPS, b.RPS)
	case judge.GuessNumber:
		return protocol.GuessNumberGameData(a.GuessNumber, b.GuessNumber, oracleSecretOrZero(secret))
	default:
		return protocol.GameData{}
	}
}
