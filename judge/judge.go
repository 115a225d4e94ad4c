package judge

import "fmt"

// Session carries whatever judging state a game needs beyond the two
// players' actions: nothing for RPS, the oracle's committed secret for
// GuessNumber.
type Session struct {
	Kind         Kind
	OracleSecret OracleSecret
}

// Judge dispatches to the kind-appropriate judging function. Both
// actions must already have been validated with ValidateAction or
// ValidateActionRange.
func Judge(sess Session, a, b Action) (Result, error) {
	switch sess.Kind {
	case RockPaperScissors:
		return JudgeRPS(a.RPS, b.RPS), nil
	case GuessNumber:
		return JudgeGuessNumber(a.GuessNumber, b.GuessNumber, sess.OracleSecret), nil
	default:
		return Draw, fmt.Errorf("unknown game kind %v", sess.Kind)
	}
}
