// Command fibergamedemo drives the six literal end-to-end scenarios
// from the protocol's testable-properties section against an
// in-process oracle, two players, and the in-memory hold-invoice
// ledger, grounded on the teacher's cmd/pongbot and cmd/pongclient
// demo binaries.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/decred/slog"
	"github.com/jonboulle/clockwork"
	"github.com/quake/fiber-demo/gamecrypto"
	"github.com/quake/fiber-demo/invoiceclient"
	"github.com/quake/fiber-demo/judge"
	"github.com/quake/fiber-demo/oracle"
	"github.com/quake/fiber-demo/player"
	"github.com/quake/fiber-demo/protocol"
)

const startingBalance = int64(10_000)

var log = newLogger()

func newLogger() slog.Logger {
	backend := slog.NewBackend(os.Stdout)
	l := backend.Logger("DEMO")
	l.SetLevel(slog.LevelInfo)
	return l
}

type rig struct {
	clock  clockwork.FakeClock
	oracle *oracle.Engine
	ledger *invoiceclient.Ledger
	a, b   *player.Engine
}

func newRig() *rig {
	kp, err := gamecrypto.GenerateKeypair()
	if err != nil {
		panic(err)
	}
	clock := clockwork.NewFakeClock()
	o := oracle.NewEngine(kp, clock, log)

	ledger := invoiceclient.NewLedger()
	ledger.Credit("alice", startingBalance)
	ledger.Credit("bob", startingBalance)

	a := player.NewEngine("alice", o, invoiceclient.NewMemoryClient(ledger, "alice"), log, clock)
	b := player.NewEngine("bob", o, invoiceclient.NewMemoryClient(ledger, "bob"), log, clock)

	return &rig{clock: clock, oracle: o, ledger: ledger, a: a, b: b}
}

func (r *rig) report(scenario string) {
	fmt.Printf("%s: alice=%d bob=%d\n", scenario, r.ledger.Balance("alice"), r.ledger.Balance("bob"))
}

func main() {
	scenarioRPSAWins()
	scenarioRPSDraw()
	scenarioGuessNumberBWins()
	scenarioGuessNumberTie()
	scenarioTimeout()
	scenarioOracleFraud()
}

// scenarioRPSAWins is scenario 1: Rock beats Scissors, the winner
// settles both invoices, the loser's stake moves to the winner.
func scenarioRPSAWins() {
	r := newRig()
	ctx := context.Background()
	stake := int64(1000)

	id, err := r.a.CreateGame(ctx, judge.RockPaperScissors, stake, 300, 3600, 0)
	must(err)
	must(r.b.JoinGame(ctx, id, judge.RockPaperScissors, stake, 3600, 0))
	must(r.a.AfterOpponentInvoice(ctx, id))
	must(r.b.AfterOpponentInvoice(ctx, id))
	must(r.a.SendEncryptedPreimage(id))
	must(r.b.SendEncryptedPreimage(id))
	must(r.a.Commit(id, judge.Action{RPS: judge.Rock}))
	must(r.b.Commit(id, judge.Action{RPS: judge.Scissors}))
	must(r.a.Reveal(id))
	must(r.b.Reveal(id))
	must(r.a.PollResult(ctx, id))
	must(r.b.PollResult(ctx, id))
	must(r.a.Settle(ctx, id))
	must(r.b.Settle(ctx, id))

	r.report("1 RPS A wins (expect alice +1000, bob -1000)")
}

// scenarioRPSDraw is scenario 2: Paper vs Paper, both cancel their own
// invoice and end up flat.
func scenarioRPSDraw() {
	r := newRig()
	ctx := context.Background()
	stake := int64(1000)

	id, err := r.a.CreateGame(ctx, judge.RockPaperScissors, stake, 300, 3600, 0)
	must(err)
	must(r.b.JoinGame(ctx, id, judge.RockPaperScissors, stake, 3600, 0))
	must(r.a.AfterOpponentInvoice(ctx, id))
	must(r.b.AfterOpponentInvoice(ctx, id))
	must(r.a.SendEncryptedPreimage(id))
	must(r.b.SendEncryptedPreimage(id))
	must(r.a.Commit(id, judge.Action{RPS: judge.Paper}))
	must(r.b.Commit(id, judge.Action{RPS: judge.Paper}))
	must(r.a.Reveal(id))
	must(r.b.Reveal(id))
	must(r.a.PollResult(ctx, id))
	must(r.b.PollResult(ctx, id))
	must(r.a.Settle(ctx, id))
	must(r.b.Settle(ctx, id))

	r.report("2 RPS draw (expect 0, 0)")
}

// scenarioGuessNumberBWins is scenario 3: A guesses 42 and B guesses
// 55. The oracle draws its secret at random, so B's guess is the closer
// one, and B wins, only when the secret is 49 or more; below that A
// wins.
func scenarioGuessNumberBWins() {
	r := newRig()
	ctx := context.Background()
	stake := int64(500)

	id, err := r.a.CreateGame(ctx, judge.GuessNumber, stake, 300, 3600, 99)
	must(err)
	must(r.b.JoinGame(ctx, id, judge.GuessNumber, stake, 3600, 99))
	must(r.a.AfterOpponentInvoice(ctx, id))
	must(r.b.AfterOpponentInvoice(ctx, id))
	must(r.a.SendEncryptedPreimage(id))
	must(r.b.SendEncryptedPreimage(id))
	must(r.a.Commit(id, judge.Action{GuessNumber: 42}))
	must(r.b.Commit(id, judge.Action{GuessNumber: 55}))
	must(r.a.Reveal(id))
	must(r.b.Reveal(id))
	must(r.a.PollResult(ctx, id))
	must(r.b.PollResult(ctx, id))
	must(r.a.Settle(ctx, id))
	must(r.b.Settle(ctx, id))

	r.report("3 GuessNumber 42 vs 55 (alice -500, bob +500 when the random secret is 49 or more; the reverse otherwise)")
}

// scenarioGuessNumberTie is scenario 4: A guesses 48 and B guesses 52,
// which are equidistant only from 50. The oracle draws its secret at
// random, so it rules a draw only when the secret is exactly 50;
// otherwise the closer guess wins.
func scenarioGuessNumberTie() {
	r := newRig()
	ctx := context.Background()
	stake := int64(500)

	id, err := r.a.CreateGame(ctx, judge.GuessNumber, stake, 300, 3600, 99)
	must(err)
	must(r.b.JoinGame(ctx, id, judge.GuessNumber, stake, 3600, 99))
	must(r.a.AfterOpponentInvoice(ctx, id))
	must(r.b.AfterOpponentInvoice(ctx, id))
	must(r.a.SendEncryptedPreimage(id))
	must(r.b.SendEncryptedPreimage(id))
	must(r.a.Commit(id, judge.Action{GuessNumber: 48}))
	must(r.b.Commit(id, judge.Action{GuessNumber: 52}))
	must(r.a.Reveal(id))
	must(r.b.Reveal(id))
	must(r.a.PollResult(ctx, id))
	must(r.b.PollResult(ctx, id))
	must(r.a.Settle(ctx, id))
	must(r.b.Settle(ctx, id))

	r.report("4 GuessNumber 48 vs 52 (0, 0 only when the random secret is exactly 50; otherwise the closer guess wins 500)")
}

// scenarioTimeout is scenario 5: A reveals, B never does, and the
// clock is advanced past reveal_timeout so the oracle rules a
// timeout-Draw and both players simply cancel.
func scenarioTimeout() {
	r := newRig()
	ctx := context.Background()
	stake := int64(1000)
	revealTimeout := int64(60)

	id, err := r.a.CreateGame(ctx, judge.RockPaperScissors, stake, revealTimeout, 3600, 0)
	must(err)
	must(r.b.JoinGame(ctx, id, judge.RockPaperScissors, stake, 3600, 0))
	must(r.a.AfterOpponentInvoice(ctx, id))
	must(r.b.AfterOpponentInvoice(ctx, id))
	must(r.a.SendEncryptedPreimage(id))
	must(r.b.SendEncryptedPreimage(id))
	must(r.a.Commit(id, judge.Action{RPS: judge.Rock}))
	must(r.b.Commit(id, judge.Action{RPS: judge.Paper}))
	must(r.a.Reveal(id))
	// bob never reveals.

	r.clock.Advance(time.Duration(revealTimeout+1) * time.Second)

	must(r.a.PollResult(ctx, id))
	must(r.b.PollResult(ctx, id))
	must(r.a.Settle(ctx, id))
	must(r.b.Settle(ctx, id))

	r.report("5 timeout (expect 0, 0)")
}

// scenarioOracleFraud is scenario 6: a would-be malicious oracle signs
// "B wins" over an RPS round that judge.JudgeRPS actually calls for A,
// using the same per-game nonce the real oracle derived so the forged
// signature still verifies against the game's published R. Alice's
// verification routine must catch the disagreement locally and refuse
// to settle; it only cancels its own invoice.
func scenarioOracleFraud() {
	kp, err := gamecrypto.GenerateKeypair()
	must(err)
	clock := clockwork.NewFakeClock()
	o := oracle.NewEngine(kp, clock, log)

	ledger := invoiceclient.NewLedger()
	ledger.Credit("alice", startingBalance)
	ledger.Credit("bob", startingBalance)

	coerced := &coercedOracle{OracleClient: o}
	a := player.NewEngine("alice", coerced, invoiceclient.NewMemoryClient(ledger, "alice"), log, clock)
	b := player.NewEngine("bob", o, invoiceclient.NewMemoryClient(ledger, "bob"), log, clock)

	ctx := context.Background()
	stake := int64(1000)
	id, err := a.CreateGame(ctx, judge.RockPaperScissors, stake, 300, 3600, 0)
	must(err)
	must(b.JoinGame(ctx, id, judge.RockPaperScissors, stake, 3600, 0))
	must(a.AfterOpponentInvoice(ctx, id))
	must(b.AfterOpponentInvoice(ctx, id))
	must(a.SendEncryptedPreimage(id))
	must(b.SendEncryptedPreimage(id))
	must(a.Commit(id, judge.Action{RPS: judge.Rock}))
	must(b.Commit(id, judge.Action{RPS: judge.Scissors}))
	must(a.Reveal(id))
	must(b.Reveal(id))

	r, R := kp.DeriveNonce(id)
	forged := protocol.VerdictMessage{
		GameID:    id,
		Kind:      judge.RockPaperScissors,
		GameData:  protocol.RPSGameData(judge.Rock, judge.Scissors),
		Verdict:   gamecrypto.TagBWins,
		Signature: [64]byte(kp.SignVerdict(r, R, id, gamecrypto.TagBWins)),
	}
	coerced.result = &protocol.GetResultResponse{Result: &forged}

	err = a.PollResult(ctx, id)
	fmt.Printf("6 oracle fraud: alice's verification routine reported: %v\n", err)

	// PollResult already cancelled alice's own invoice the moment it
	// caught the disagreement; Settle on a Fraud-phase game is a no-op.
	must(a.Settle(ctx, id))
	fmt.Printf("6 oracle fraud: alice=%d bob=%d (alice's own stake reclaimed from bob's payment into it; bob's invoice is left untouched since alice never settles it)\n",
		ledger.Balance("alice"), ledger.Balance("bob"))
}

// coercedOracle forwards every call to the real oracle except
// GetResult, which returns a forged verdict once one has been
// installed, standing in for a compromised or coerced oracle
// operator.
type coercedOracle struct {
	player.OracleClient
	result *protocol.GetResultResponse
}

func (c *coercedOracle) GetResult(req protocol.GetResultRequest) (protocol.GetResultResponse, error) {
	if c.result == nil {
		return c.OracleClient.GetResult(req)
	}
	return *c.result, nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
