package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/slog"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/invoiceclient"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/protocol"
)

// Engine owns one player identity across however many concurrent
// games it is playing, generalized from client/client.go's PongClient
// shape: an injected logger, an injected clock, and a mutex-guarded
// map of live per-game state.
type Engine struct {
	id       protocol.PlayerID
	oracle   OracleClient
	invoices invoiceclient.Client
	log      slog.Logger
	clock    clockwork.Clock

	mu    sync.Mutex
	games map[protocol.GameID]*localGame
}

// NewEngine constructs a player bound to a single identity, oracle
// handle, and hold-invoice capability.
func NewEngine(id protocol.PlayerID, oracle OracleClient, invoices invoiceclient.Client, log slog.Logger, clock clockwork.Clock) *Engine {
	return &Engine{
		id:       id,
		oracle:   oracle,
		invoices: invoices,
		log:      log,
		clock:    clock,
		games:    make(map[protocol.GameID]*localGame),
	}
}

func (e *Engine) get(id protocol.GameID) (*localGame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lg, ok := e.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	return lg, nil
}

func parsePub(b []byte) (*secp256k1.PublicKey, error) {
	return secp256k1.ParsePubKey(b)
}

// CreateGame is operation 1: generates the player's preimage/salt,
// opens the session with the oracle as player A, creates and
// registers the hold invoice.
func (e *Engine) CreateGame(ctx context.Context, kind judge.Kind, stake int64, timeoutSeconds, expirySeconds int64, rangeMax uint8) (protocol.GameID, error) {
	preimage, err := gamecrypto.RandomPreimage()
	if err != nil {
		return protocol.GameID{}, fmt.Errorf("create game: %w", err)
	}
	salt, err := gamecrypto.RandomSalt()
	if err != nil {
		return protocol.GameID{}, fmt.Errorf("create game: %w", err)
	}
	paymentHash := gamecrypto.PaymentHash(preimage)

	resp, err := e.oracle.CreateGame(protocol.CreateGameRequest{
		PlayerA:        e.id,
		Kind:           kind,
		Stake:          stake,
		TimeoutSeconds: timeoutSeconds,
		RangeMax:       rangeMax,
	})
	if err != nil {
		return protocol.GameID{}, fmt.Errorf("create game: %w", err)
	}

	R, err := parsePub(resp.CommitmentPoint[:])
	if err != nil {
		return protocol.GameID{}, fmt.Errorf("create game: parse R: %w", err)
	}
	O, err := parsePub(resp.Pubkey[:])
	if err != nil {
		return protocol.GameID{}, fmt.Errorf("create game: parse O: %w", err)
	}

	lg := &localGame{
		id: resp.GameID, kind: kind, role: protocol.PlayerA, stake: stake, rangeMax: rangeMax,
		preimage: preimage, salt: salt, paymentHash: paymentHash,
		oraclePub: O, R: R, oracleCommitment: resp.OracleCommitment,
		phase: WaitingForOpponent,
	}

	e.mu.Lock()
	e.games[lg.id] = lg
	e.mu.Unlock()

	if err := e.registerOwnInvoice(ctx, lg, expirySeconds); err != nil {
		return lg.id, err
	}

	e.log.Debugf("player %s: created game %x kind=%v stake=%d", e.id, lg.id[:4], kind, stake)
	return lg.id, nil
}

// JoinGame is operation 2. The caller must already know kind and
// stake (from a prior ListAvailable call) since the oracle's join
// response carries only the public signature-point material.
func (e *Engine) JoinGame(ctx context.Context, gameID protocol.GameID, kind judge.Kind, stake int64, expirySeconds int64, rangeMax uint8) error {
	preimage, err := gamecrypto.RandomPreimage()
	if err != nil {
		return fmt.Errorf("join game: %w", err)
	}
	salt, err := gamecrypto.RandomSalt()
	if err != nil {
		return fmt.Errorf("join game: %w", err)
	}
	paymentHash := gamecrypto.PaymentHash(preimage)

	resp, err := e.oracle.Join(protocol.JoinGameRequest{GameID: gameID, PlayerB: e.id})
	if err != nil {
		return fmt.Errorf("join game: %w", err)
	}

	R, err := parsePub(resp.CommitmentPoint[:])
	if err != nil {
		return fmt.Errorf("join game: parse R: %w", err)
	}
	O, err := parsePub(resp.Pubkey[:])
	if err != nil {
		return fmt.Errorf("join game: parse O: %w", err)
	}

	lg := &localGame{
		id: gameID, kind: kind, role: protocol.PlayerB, stake: stake, rangeMax: rangeMax,
		preimage: preimage, salt: salt, paymentHash: paymentHash,
		oraclePub: O, R: R, oracleCommitment: resp.OracleCommitment,
		phase: ExchangingInvoices,
	}

	e.mu.Lock()
	e.games[lg.id] = lg
	e.mu.Unlock()

	if err := e.registerOwnInvoice(ctx, lg, expirySeconds); err != nil {
		return err
	}

	e.log.Debugf("player %s: joined game %x", e.id, gameID[:4])
	return nil
}

func (e *Engine) registerOwnInvoice(ctx context.Context, lg *localGame, expirySeconds int64) error {
	_, err := e.invoices.CreateHoldInvoice(ctx, [32]byte(lg.paymentHash), lg.stake, expirySeconds)
	if err != nil {
		return fmt.Errorf("register invoice: %w", err)
	}
	if err := e.oracle.SubmitInvoice(protocol.SubmitInvoiceRequest{
		GameID: lg.id, Player: lg.role, PaymentHash: [32]byte(lg.paymentHash), Amount: lg.stake,
	}); err != nil {
		return fmt.Errorf("submit invoice: %w", err)
	}
	return nil
}

// AfterOpponentInvoice is operation 3: polls the opponent's invoice
// and pays it, locking this player's own stake.
func (e *Engine) AfterOpponentInvoice(ctx context.Context, gameID protocol.GameID) error {
	lg, err := e.get(gameID)
	if err != nil {
		return err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	resp, err := e.oracle.GetInvoice(protocol.GetInvoiceRequest{GameID: lg.id, Opponent: lg.role.Opponent()})
	if err != nil {
		return ErrOpponentInvoiceNotReady
	}

	if _, err := e.invoices.PayHoldInvoice(ctx, invoiceclient.Descriptor{
		PaymentHash: resp.PaymentHash, Amount: resp.Amount,
	}); err != nil {
		return fmt.Errorf("pay opponent invoice: %w", err)
	}

	lg.opponentPaymentHash = &resp.PaymentHash
	lg.opponentInvoiceAmt = resp.Amount
	lg.phase = ExchangingEncryptedPreimages
	return nil
}

// losingTag returns the verdict tag under which this player's own
// preimage must be encrypted: the tag that names the *opponent* as
// winner, since only the opponent learning the oracle's signature for
// that verdict should be able to decrypt and claim this player's
// stake.
func losingTag(role protocol.Role) protocol.VerdictTag {
	if role == protocol.PlayerA {
		return gamecrypto.TagBWins
	}
	return gamecrypto.TagAWins
}

// SendEncryptedPreimage is operation 4: encrypts this player's own
// preimage under the signature point for the verdict in which it
// loses, and submits it to the oracle for the opponent to later
// recover.
func (e *Engine) SendEncryptedPreimage(gameID protocol.GameID) error {
	lg, err := e.get(gameID)
	if err != nil {
		return err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	point, err := gamecrypto.SignaturePoint(lg.R, lg.oraclePub, lg.id, losingTag(lg.role))
	if err != nil {
		return fmt.Errorf("send encrypted preimage: %w", err)
	}
	enc := gamecrypto.EncryptPreimage(lg.preimage, point)

	if err := e.oracle.SubmitEncryptedPreimage(protocol.SubmitEncryptedPreimageRequest{
		GameID: lg.id, Player: lg.role, Enc: [32]byte(enc),
	}); err != nil {
		return fmt.Errorf("submit encrypted preimage: %w", err)
	}
	lg.phase = WaitingForAction
	return nil
}

// Commit is operation 5: records the player's chosen action locally
// and submits its commitment to the oracle.
func (e *Engine) Commit(gameID protocol.GameID, action judge.Action) error {
	lg, err := e.get(gameID)
	if err != nil {
		return err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	rangeMax := lg.rangeMax
	if rangeMax == 0 {
		rangeMax = judge.MaxGuessDefault
	}
	if err := judge.ValidateActionRange(lg.kind, action, rangeMax); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	actionBytes, err := action.Bytes(lg.kind)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	commit := gamecrypto.Commit(actionBytes, lg.salt)

	if err := e.oracle.SubmitCommit(protocol.SubmitCommitRequest{
		GameID: lg.id, Player: lg.role, Commit: [32]byte(commit),
	}); err != nil {
		return fmt.Errorf("submit commit: %w", err)
	}

	lg.action = action
	lg.actionSet = true
	lg.phase = Committed
	return nil
}

// Reveal is operation 6: fetches the opponent's already-submitted
// commit as the witness the oracle requires, then discloses this
// player's own action and salt.
func (e *Engine) Reveal(gameID protocol.GameID) error {
	lg, err := e.get(gameID)
	if err != nil {
		return err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	if !lg.actionSet {
		return ErrWrongPhase
	}

	actionBytes, err := lg.action.Bytes(lg.kind)
	if err != nil {
		return fmt.Errorf("reveal: %w", err)
	}
	ownCommit := gamecrypto.Commit(actionBytes, lg.salt)

	opponentCommit, err := e.oracle.GetCommit(protocol.GetCommitRequest{GameID: lg.id, Opponent: lg.role.Opponent()})
	if err != nil {
		return fmt.Errorf("reveal: fetch opponent commit: %w", err)
	}

	var commitA, commitB [32]byte
	if lg.role == protocol.PlayerA {
		commitA, commitB = [32]byte(ownCommit), opponentCommit
	} else {
		commitA, commitB = opponentCommit, [32]byte(ownCommit)
	}

	var salt [32]byte = lg.salt
	if err := e.oracle.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: lg.id, Player: lg.role, Action: lg.action, Salt: salt,
		CommitA: commitA, CommitB: commitB,
	}); err != nil {
		return fmt.Errorf("submit reveal: %w", err)
	}

	lg.phase = Revealed
	return nil
}

// PollResult is operation 7: fetches the oracle's verdict if ready,
// verifies the signature, independently re-judges the disclosed
// actions (or re-verifies the oracle secret commitment for
// GuessNumber), and files fraud evidence on any disagreement rather
// than trusting the oracle's claimed tag.
func (e *Engine) PollResult(ctx context.Context, gameID protocol.GameID) error {
	lg, err := e.get(gameID)
	if err != nil {
		return err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	resp, err := e.oracle.GetResult(protocol.GetResultRequest{GameID: lg.id})
	if err != nil {
		return fmt.Errorf("poll result: %w", err)
	}
	if resp.Pending || resp.Result == nil {
		return ErrResultPending
	}
	msg := *resp.Result

	ok, err := gamecrypto.VerifyVerdict(lg.oraclePub, lg.id, msg.Verdict, gamecrypto.Signature(msg.Signature))
	if err != nil || !ok {
		ev := &FraudEvidence{GameID: lg.id, Message: msg, Reason: "signature verification failed"}
		lg.phase = Fraud
		lg.fraud = ev
		e.cancelOwnInvoiceOnFraud(ctx, lg)
		return fmt.Errorf("%w: %v", ErrOracleSignatureInvalid, newFraudError(ev))
	}

	if !msg.GameData.Timeout {
		localTag, err := e.localVerdictTag(lg, msg.GameData)
		if err != nil {
			return fmt.Errorf("poll result: %w", err)
		}
		if localTag != msg.Verdict {
			ev := &FraudEvidence{GameID: lg.id, Message: msg, LocalVerdict: localTag, Reason: "oracle verdict disagrees with local judging"}
			lg.phase = Fraud
			lg.fraud = ev
			e.cancelOwnInvoiceOnFraud(ctx, lg)
			return fmt.Errorf("%w: %v", ErrOracleFraud, newFraudError(ev))
		}
	}

	lg.result = &msg
	lg.phase = WaitingForResult
	return nil
}

// cancelOwnInvoiceOnFraud cancels this player's own invoice once a
// game has been flagged Fraud, releasing what the opponent paid into
// it to this player; the stake this player paid into the opponent's
// invoice stays held there. It never attempts to settle
// the opponent's invoice, since the oracle's verdict for this game
// cannot be trusted. Must be called while holding lg.mu.
func (e *Engine) cancelOwnInvoiceOnFraud(ctx context.Context, lg *localGame) {
	if err := e.invoices.CancelInvoice(ctx, [32]byte(lg.paymentHash)); err != nil {
		e.log.Warnf("player %s: cancel own invoice after fraud detection on game %x: %v", e.id, lg.id[:4], err)
	}
}

// localVerdictTag independently re-derives the verdict a resolved,
// non-timeout GameData implies, re-verifying the oracle's secret
// commitment for GuessNumber before trusting its disclosed value.
func (e *Engine) localVerdictTag(lg *localGame, data protocol.GameData) (protocol.VerdictTag, error) {
	switch lg.kind {
	case judge.RockPaperScissors:
		result := judge.JudgeRPS(judge.RPSMove(data.ActionA), judge.RPSMove(data.ActionB))
		return protocol.ResultToTag(result), nil
	case judge.GuessNumber:
		secret := judge.OracleSecret{Secret: data.Secret, Nonce: data.Nonce}
		if lg.oracleCommitment == nil || !judge.VerifyOracleSecret(secret, *lg.oracleCommitment) {
			return "", fmt.Errorf("oracle secret does not match its pre-game commitment")
		}
		result := judge.JudgeGuessNumber(data.ActionA, data.ActionB, secret)
		return protocol.ResultToTag(result), nil
	default:
		return "", fmt.Errorf("unknown game kind %v", lg.kind)
	}
}

// Settle is operation 8: acts on a verified result.
//
// The opponent pays this player's own invoice during
// AfterOpponentInvoice, and this player pays the opponent's; each
// invoice's escrowed amount is released to whichever account's
// invoiceclient.Client instance settles or cancels it — there is no
// fixed recipient. A draw or timeout has each side cancel its own
// invoice, reclaiming what the opponent paid into it. A win requires
// two releases: this player's own invoice (settled with its own,
// always-known preimage, claiming what the opponent paid in) and the
// opponent's invoice (settled with the preimage decrypted from the
// oracle's signature, reclaiming this player's own stake back). A
// loss takes no action; the winner performs both releases.
func (e *Engine) Settle(ctx context.Context, gameID protocol.GameID) error {
	lg, err := e.get(gameID)
	if err != nil {
		return err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	if lg.phase == Fraud {
		return nil
	}
	if lg.result == nil {
		return ErrResultPending
	}
	msg := *lg.result

	var merr *multierror.Error

	switch {
	case msg.GameData.Timeout || msg.Verdict == gamecrypto.TagDraw:
		if err := e.invoices.CancelInvoice(ctx, [32]byte(lg.paymentHash)); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("cancel own invoice: %w", err))
		}
		lg.phase = Settled

	case msg.Verdict == ownWinningTag(lg.role):
		if lg.opponentPaymentHash == nil {
			return fmt.Errorf("settle: opponent payment hash not yet known")
		}

		point, err := gamecrypto.SignaturePoint(lg.R, lg.oraclePub, lg.id, losingTag(lg.role.Opponent()))
		if err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		encOpp, err := e.oracle.GetEncryptedPreimage(protocol.GetEncryptedPreimageRequest{GameID: lg.id, Opponent: lg.role.Opponent()})
		if err != nil {
			return fmt.Errorf("settle: fetch opponent encrypted preimage: %w", err)
		}
		opponentPreimage := gamecrypto.DecryptPreimage(gamecrypto.EncryptedPreimage(encOpp), point)
		if !gamecrypto.VerifyPreimage(gamecrypto.Hash(*lg.opponentPaymentHash), opponentPreimage) {
			ev := &FraudEvidence{GameID: lg.id, Message: msg, Reason: "decrypted opponent preimage does not match its payment hash"}
			lg.phase = Fraud
			lg.fraud = ev
			e.cancelOwnInvoiceOnFraud(ctx, lg)
			return fmt.Errorf("%w: %v", ErrPreimageMismatch, newFraudError(ev))
		}

		if err := e.invoices.SettleInvoice(ctx, [32]byte(lg.paymentHash), [32]byte(lg.preimage)); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("settle own invoice: %w", err))
		}
		if err := e.invoices.SettleInvoice(ctx, *lg.opponentPaymentHash, [32]byte(opponentPreimage)); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("settle opponent invoice: %w", err))
		}
		lg.phase = Settled

	default:
		lg.phase = Settled
	}

	e.log.Debugf("player %s: settled game %x phase=%v", e.id, lg.id[:4], lg.phase)
	return merr.ErrorOrNil()
}

// ownWinningTag returns the verdict tag that names this player the
// winner.
func ownWinningTag(role protocol.Role) protocol.VerdictTag {
	if role == protocol.PlayerA {
		return gamecrypto.TagAWins
	}
	return gamecrypto.TagBWins
}
