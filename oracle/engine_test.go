package oracle

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/jonboulle/clockwork"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, clockwork.FakeClock) {
	t.Helper()
	kp, err := gamecrypto.GenerateKeypair()
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	return NewEngine(kp, clock, slog.Disabled), clock
}

func createJoinedRPSGame(t *testing.T, e *Engine, timeoutSeconds int64) protocol.GameID {
	t.Helper()
	created, err := e.CreateGame(protocol.CreateGameRequest{
		PlayerA:        "alice",
		Kind:           judge.RockPaperScissors,
		Stake:          100,
		TimeoutSeconds: timeoutSeconds,
	})
	require.NoError(t, err)

	_, err = e.Join(protocol.JoinGameRequest{GameID: created.GameID, PlayerB: "bob"})
	require.NoError(t, err)
	return created.GameID
}

func submitInvoices(t *testing.T, e *Engine, id protocol.GameID) {
	t.Helper()
	require.NoError(t, e.SubmitInvoice(protocol.SubmitInvoiceRequest{GameID: id, Player: protocol.PlayerA, PaymentHash: [32]byte{1}, Amount: 100}))
	require.NoError(t, e.SubmitInvoice(protocol.SubmitInvoiceRequest{GameID: id, Player: protocol.PlayerB, PaymentHash: [32]byte{2}, Amount: 100}))
}

func submitEncPreimages(t *testing.T, e *Engine, id protocol.GameID) {
	t.Helper()
	require.NoError(t, e.SubmitEncryptedPreimage(protocol.SubmitEncryptedPreimageRequest{GameID: id, Player: protocol.PlayerA, Enc: [32]byte{3}}))
	require.NoError(t, e.SubmitEncryptedPreimage(protocol.SubmitEncryptedPreimageRequest{GameID: id, Player: protocol.PlayerB, Enc: [32]byte{4}}))
}

func commitAndReveal(t *testing.T, e *Engine, id protocol.GameID, aMove, bMove judge.RPSMove) {
	t.Helper()
	saltA := [32]byte{10}
	saltB := [32]byte{20}
	commitA := gamecrypto.Commit([]byte{byte(aMove)}, gamecrypto.Salt(saltA))
	commitB := gamecrypto.Commit([]byte{byte(bMove)}, gamecrypto.Salt(saltB))

	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerA, Commit: [32]byte(commitA)}))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerB, Commit: [32]byte(commitB)}))

	require.NoError(t, e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: id, Player: protocol.PlayerA, Action: judge.Action{RPS: aMove}, Salt: saltA,
		CommitA: [32]byte(commitA), CommitB: [32]byte(commitB),
	}))
	require.NoError(t, e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: id, Player: protocol.PlayerB, Action: judge.Action{RPS: bMove}, Salt: saltB,
		CommitA: [32]byte(commitA), CommitB: [32]byte(commitB),
	}))
}

func TestFullRPSHappyPathSignsCorrectVerdict(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	submitInvoices(t, e, id)
	submitEncPreimages(t, e, id)
	commitAndReveal(t, e, id, judge.Rock, judge.Scissors)

	resp, err := e.GetResult(protocol.GetResultRequest{GameID: id})
	require.NoError(t, err)
	require.False(t, resp.Pending)
	assert.Equal(t, protocol.VerdictTag("A wins"), resp.Result.Verdict)

	ok, err := gamecrypto.VerifyVerdict(e.keypair.Pub, id, resp.Result.Verdict, resp.Result.Signature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRevealDeadlineProducesTimeoutDraw(t *testing.T) {
	e, clock := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 60)
	submitInvoices(t, e, id)
	submitEncPreimages(t, e, id)

	saltA := [32]byte{1}
	commitA := gamecrypto.Commit([]byte{byte(judge.Rock)}, gamecrypto.Salt(saltA))
	saltB := [32]byte{2}
	commitB := gamecrypto.Commit([]byte{byte(judge.Paper)}, gamecrypto.Salt(saltB))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerA, Commit: [32]byte(commitA)}))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerB, Commit: [32]byte(commitB)}))

	require.NoError(t, e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: id, Player: protocol.PlayerA, Action: judge.Action{RPS: judge.Rock}, Salt: saltA,
		CommitA: [32]byte(commitA), CommitB: [32]byte(commitB),
	}))

	clock.Advance(61 * time.Second)

	resp, err := e.GetResult(protocol.GetResultRequest{GameID: id})
	require.NoError(t, err)
	require.False(t, resp.Pending)
	assert.Equal(t, protocol.VerdictTag("Draw"), resp.Result.Verdict)
	assert.True(t, resp.Result.GameData.Timeout)

	msg := protocol.EncodeVerdictMessage(id, judge.RockPaperScissors, resp.Result.GameData, resp.Result.Verdict)
	realDrawMsg := protocol.EncodeVerdictMessage(id, judge.RockPaperScissors, protocol.RPSGameData(judge.Rock, judge.Rock), resp.Result.Verdict)
	assert.NotEqual(t, msg, realDrawMsg)
}

func TestNonceIsNeverReusedAcrossResolveCalls(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	submitInvoices(t, e, id)
	submitEncPreimages(t, e, id)
	commitAndReveal(t, e, id, judge.Paper, judge.Scissors)

	sess, err := e.get(id)
	require.NoError(t, err)
	sess.mu.Lock()
	firstSig := sess.result.Signature
	e.maybeResolve(sess, e.clock.Now())
	secondSig := sess.result.Signature
	sess.mu.Unlock()

	assert.Equal(t, firstSig, secondSig)
}

func TestSubmitRevealRejectsWrongWitnessCommits(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	submitInvoices(t, e, id)
	submitEncPreimages(t, e, id)

	saltA := [32]byte{1}
	commitA := gamecrypto.Commit([]byte{byte(judge.Rock)}, gamecrypto.Salt(saltA))
	saltB := [32]byte{2}
	commitB := gamecrypto.Commit([]byte{byte(judge.Paper)}, gamecrypto.Salt(saltB))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerA, Commit: [32]byte(commitA)}))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerB, Commit: [32]byte(commitB)}))

	var wrongCommit [32]byte
	err := e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: id, Player: protocol.PlayerA, Action: judge.Action{RPS: judge.Rock}, Salt: saltA,
		CommitA: wrongCommit, CommitB: [32]byte(commitB),
	})
	assert.ErrorIs(t, err, ErrWitnessMismatch)
}

func TestSubmitRevealRejectsMismatchedCommit(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	submitInvoices(t, e, id)
	submitEncPreimages(t, e, id)

	saltA := [32]byte{1}
	commitA := gamecrypto.Commit([]byte{byte(judge.Rock)}, gamecrypto.Salt(saltA))
	saltB := [32]byte{2}
	commitB := gamecrypto.Commit([]byte{byte(judge.Paper)}, gamecrypto.Salt(saltB))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerA, Commit: [32]byte(commitA)}))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: id, Player: protocol.PlayerB, Commit: [32]byte(commitB)}))

	err := e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: id, Player: protocol.PlayerA, Action: judge.Action{RPS: judge.Scissors}, Salt: saltA,
		CommitA: [32]byte(commitA), CommitB: [32]byte(commitB),
	})
	assert.ErrorIs(t, err, ErrCommitMismatch)
}

func TestJoinRejectsAlreadyJoinedGame(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	_, err := e.Join(protocol.JoinGameRequest{GameID: id, PlayerB: "carol"})
	assert.ErrorIs(t, err, ErrNotWaiting)
}

func TestSubmitInvoiceRejectsUnequalStake(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	err := e.SubmitInvoice(protocol.SubmitInvoiceRequest{GameID: id, Player: protocol.PlayerA, PaymentHash: [32]byte{1}, Amount: 50})
	assert.ErrorIs(t, err, ErrUnequalStakes)
}

func TestListAvailableFiltersByKindAndStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	rps, err := e.CreateGame(protocol.CreateGameRequest{PlayerA: "alice", Kind: judge.RockPaperScissors, Stake: 10, TimeoutSeconds: 60})
	require.NoError(t, err)
	guess, err := e.CreateGame(protocol.CreateGameRequest{PlayerA: "alice", Kind: judge.GuessNumber, Stake: 10, TimeoutSeconds: 60})
	require.NoError(t, err)

	all := e.ListAvailable(nil)
	assert.Len(t, all, 2)

	kind := judge.GuessNumber
	onlyGuess := e.ListAvailable(&kind)
	require.Len(t, onlyGuess, 1)
	assert.Equal(t, guess.GameID, onlyGuess[0].GameID)

	_, err = e.Join(protocol.JoinGameRequest{GameID: rps.GameID, PlayerB: "bob"})
	require.NoError(t, err)
	assert.Len(t, e.ListAvailable(nil), 1)
}

func TestGuessNumberFullFlowJudgesByDistance(t *testing.T) {
	e, _ := newTestEngine(t)
	created, err := e.CreateGame(protocol.CreateGameRequest{PlayerA: "alice", Kind: judge.GuessNumber, Stake: 100, TimeoutSeconds: 300})
	require.NoError(t, err)
	require.NotNil(t, created.OracleCommitment)

	_, err = e.Join(protocol.JoinGameRequest{GameID: created.GameID, PlayerB: "bob"})
	require.NoError(t, err)
	submitInvoices(t, e, created.GameID)
	submitEncPreimages(t, e, created.GameID)

	sess, err := e.get(created.GameID)
	require.NoError(t, err)
	secretValue := sess.oracleSecret.Secret

	var guessA, guessB uint8
	if secretValue < 98 {
		guessA, guessB = secretValue+1, 99
	} else {
		guessA, guessB = secretValue-1, 0
	}

	saltA := [32]byte{1}
	saltB := [32]byte{2}
	commitA := gamecrypto.Commit([]byte{guessA}, gamecrypto.Salt(saltA))
	commitB := gamecrypto.Commit([]byte{guessB}, gamecrypto.Salt(saltB))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: created.GameID, Player: protocol.PlayerA, Commit: [32]byte(commitA)}))
	require.NoError(t, e.SubmitCommit(protocol.SubmitCommitRequest{GameID: created.GameID, Player: protocol.PlayerB, Commit: [32]byte(commitB)}))
	require.NoError(t, e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: created.GameID, Player: protocol.PlayerA, Action: judge.Action{GuessNumber: guessA}, Salt: saltA,
		CommitA: [32]byte(commitA), CommitB: [32]byte(commitB),
	}))
	require.NoError(t, e.SubmitReveal(protocol.SubmitRevealRequest{
		GameID: created.GameID, Player: protocol.PlayerB, Action: judge.Action{GuessNumber: guessB}, Salt: saltB,
		CommitA: [32]byte(commitA), CommitB: [32]byte(commitB),
	}))

	resp, err := e.GetResult(protocol.GetResultRequest{GameID: created.GameID})
	require.NoError(t, err)
	require.False(t, resp.Pending)
	assert.Equal(t, protocol.VerdictTag("A wins"), resp.Result.Verdict)
	assert.Equal(t, secretValue, resp.Result.GameData.Secret)
}

func TestArchiveRequiresJudgedGame(t *testing.T) {
	e, _ := newTestEngine(t)
	id := createJoinedRPSGame(t, e, 300)
	err := e.Archive(id)
	assert.ErrorIs(t, err, ErrWrongPhase)

	submitInvoices(t, e, id)
	submitEncPreimages(t, e, id)
	commitAndReveal(t, e, id, judge.Rock, judge.Rock)

	require.NoError(t, e.Archive(id))
}
