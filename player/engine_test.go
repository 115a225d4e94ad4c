package player

import (
	"context"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/jonboulle/clockwork"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/invoiceclient"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/oracle"
	"github.com/quake/fiber-demo/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startingBalance = int64(10_000)

func newTestPair(t *testing.T) (a, b *Engine, ledger *invoiceclient.Ledger) {
	t.Helper()
	kp, err := gamecrypto.GenerateKeypair()
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	o := oracle.NewEngine(kp, clock, slog.Disabled)

	ledger = invoiceclient.NewLedger()
	ledger.Credit("alice", startingBalance)
	ledger.Credit("bob", startingBalance)

	a = NewEngine("alice", o, invoiceclient.NewMemoryClient(ledger, "alice"), slog.Disabled, clock)
	b = NewEngine("bob", o, invoiceclient.NewMemoryClient(ledger, "bob"), slog.Disabled, clock)
	return a, b, ledger
}

func playRPSToReveal(t *testing.T, a, b *Engine, stake int64, moveA, moveB judge.RPSMove) protocol.GameID {
	t.Helper()
	ctx := context.Background()

	id, err := a.CreateGame(ctx, judge.RockPaperScissors, stake, 300, 3600, 0)
	require.NoError(t, err)
	require.NoError(t, b.JoinGame(ctx, id, judge.RockPaperScissors, stake, 3600, 0))

	require.NoError(t, a.AfterOpponentInvoice(ctx, id))
	require.NoError(t, b.AfterOpponentInvoice(ctx, id))

	require.NoError(t, a.SendEncryptedPreimage(id))
	require.NoError(t, b.SendEncryptedPreimage(id))

	require.NoError(t, a.Commit(id, judge.Action{RPS: moveA}))
	require.NoError(t, b.Commit(id, judge.Action{RPS: moveB}))

	require.NoError(t, a.Reveal(id))
	require.NoError(t, b.Reveal(id))

	return id
}

func TestFullRPSWinFlowMovesStakeFromLoserToWinner(t *testing.T) {
	a, b, ledger := newTestPair(t)
	ctx := context.Background()
	id := playRPSToReveal(t, a, b, 1000, judge.Rock, judge.Scissors)

	require.NoError(t, a.PollResult(ctx, id))
	require.NoError(t, b.PollResult(ctx, id))

	require.NoError(t, a.Settle(ctx, id))
	require.NoError(t, b.Settle(ctx, id))

	assert.Equal(t, startingBalance+1000, ledger.Balance("alice"))
	assert.Equal(t, startingBalance-1000, ledger.Balance("bob"))
}

func TestFullRPSDrawRefundsBothStakes(t *testing.T) {
	a, b, ledger := newTestPair(t)
	ctx := context.Background()
	id := playRPSToReveal(t, a, b, 500, judge.Paper, judge.Paper)

	require.NoError(t, a.PollResult(ctx, id))
	require.NoError(t, b.PollResult(ctx, id))

	require.NoError(t, a.Settle(ctx, id))
	require.NoError(t, b.Settle(ctx, id))

	assert.Equal(t, startingBalance, ledger.Balance("alice"))
	assert.Equal(t, startingBalance, ledger.Balance("bob"))
}

func TestRevealTimeoutProducesDrawAndRefundsBoth(t *testing.T) {
	kp, err := gamecrypto.GenerateKeypair()
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	o := oracle.NewEngine(kp, clock, slog.Disabled)

	ledger := invoiceclient.NewLedger()
	ledger.Credit("alice", startingBalance)
	ledger.Credit("bob", startingBalance)
	a := NewEngine("alice", o, invoiceclient.NewMemoryClient(ledger, "alice"), slog.Disabled, clock)
	b := NewEngine("bob", o, invoiceclient.NewMemoryClient(ledger, "bob"), slog.Disabled, clock)

	ctx := context.Background()
	id, err := a.CreateGame(ctx, judge.RockPaperScissors, 200, 60, 3600, 0)
	require.NoError(t, err)
	require.NoError(t, b.JoinGame(ctx, id, judge.RockPaperScissors, 200, 3600, 0))
	require.NoError(t, a.AfterOpponentInvoice(ctx, id))
	require.NoError(t, b.AfterOpponentInvoice(ctx, id))
	require.NoError(t, a.SendEncryptedPreimage(id))
	require.NoError(t, b.SendEncryptedPreimage(id))
	require.NoError(t, a.Commit(id, judge.Action{RPS: judge.Rock}))
	require.NoError(t, b.Commit(id, judge.Action{RPS: judge.Paper}))
	require.NoError(t, a.Reveal(id))
	// B never reveals.

	clock.Advance(61 * time.Second)

	require.NoError(t, a.PollResult(ctx, id))
	require.NoError(t, b.PollResult(ctx, id))
	require.NoError(t, a.Settle(ctx, id))
	require.NoError(t, b.Settle(ctx, id))

	assert.Equal(t, startingBalance, ledger.Balance("alice"))
	assert.Equal(t, startingBalance, ledger.Balance("bob"))
}

func TestGuessNumberWinFlowJudgesByDistance(t *testing.T) {
	a, b, ledger := newTestPair(t)
	ctx := context.Background()

	id, err := a.CreateGame(ctx, judge.GuessNumber, 300, 300, 3600, 99)
	require.NoError(t, err)
	require.NoError(t, b.JoinGame(ctx, id, judge.GuessNumber, 300, 3600, 99))
	require.NoError(t, a.AfterOpponentInvoice(ctx, id))
	require.NoError(t, b.AfterOpponentInvoice(ctx, id))
	require.NoError(t, a.SendEncryptedPreimage(id))
	require.NoError(t, b.SendEncryptedPreimage(id))

	secret := a.games[id].oracleCommitment
	require.NotNil(t, secret)

	// A guesses 1 and B guesses 98: their midpoint is 49.5, so no secret
	// in [0,99] is equidistant and one of them is always strictly closer.
	require.NoError(t, a.Commit(id, judge.Action{GuessNumber: 1}))
	require.NoError(t, b.Commit(id, judge.Action{GuessNumber: 98}))
	require.NoError(t, a.Reveal(id))
	require.NoError(t, b.Reveal(id))

	require.NoError(t, a.PollResult(ctx, id))
	require.NoError(t, b.PollResult(ctx, id))
	require.NoError(t, a.Settle(ctx, id))
	require.NoError(t, b.Settle(ctx, id))

	total := ledger.Balance("alice") + ledger.Balance("bob")
	assert.Equal(t, 2*startingBalance, total)
}

// fakeOracle lets a test inject an arbitrary GetResult response to
// exercise PollResult's fraud-detection paths without needing a real
// oracle to misbehave.
type fakeOracle struct {
	OracleClient
	result protocol.GetResultResponse
}

func (f *fakeOracle) GetResult(req protocol.GetResultRequest) (protocol.GetResultResponse, error) {
	return f.result, nil
}

func TestPollResultFilesFraudOnBadSignature(t *testing.T) {
	a, b, ledger := newTestPair(t)
	ctx := context.Background()
	id := playRPSToReveal(t, a, b, 100, judge.Rock, judge.Scissors)

	var badSig [64]byte
	badSig[0] = 0xff
	a.oracle = &fakeOracle{OracleClient: a.oracle, result: protocol.GetResultResponse{
		Result: &protocol.VerdictMessage{
			GameID: id, Kind: judge.RockPaperScissors,
			GameData:  protocol.RPSGameData(judge.Rock, judge.Scissors),
			Verdict:   gamecrypto.TagAWins,
			Signature: badSig,
		},
	}}

	err := a.PollResult(ctx, id)
	assert.ErrorIs(t, err, ErrOracleSignatureInvalid)
	assert.Equal(t, Fraud, a.games[id].phase)
	assert.NotNil(t, a.games[id].fraud)

	// The fraud branch cancels alice's own invoice (held with bob's
	// stake) on the spot, which makes up for the 100 alice paid into
	// bob's invoice, and a subsequent Settle call is a safe no-op
	// rather than ErrResultPending.
	assert.Equal(t, startingBalance, ledger.Balance("alice"))
	assert.NoError(t, a.Settle(ctx, id))
}

func TestPollResultFilesFraudOnDisagreeingVerdict(t *testing.T) {
	a, b, _ := newTestPair(t)
	ctx := context.Background()
	id := playRPSToReveal(t, a, b, 100, judge.Rock, judge.Scissors)

	require.NoError(t, b.PollResult(ctx, id))
	realResult := *b.games[id].result

	tampered := realResult
	tampered.GameData = protocol.RPSGameData(judge.Scissors, judge.Rock)

	a.oracle = &fakeOracle{OracleClient: a.oracle, result: protocol.GetResultResponse{Result: &tampered}}

	err := a.PollResult(ctx, id)
	assert.Error(t, err)
	assert.Equal(t, Fraud, a.games[id].phase)
}

func TestSettleRejectsBeforeResultPolled(t *testing.T) {
	a, b, _ := newTestPair(t)
	id := playRPSToReveal(t, a, b, 100, judge.Rock, judge.Scissors)

	err := a.Settle(context.Background(), id)
	assert.ErrorIs(t, err, ErrResultPending)
}
