package player

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/quake/fiber-demo/protocol"
)

// FraudEvidence is the structured record filed when either the
// oracle's signature fails verification or its signed judgment
// disagrees with a local re-computation of the game rules. It is
// wrapped with errors.WithStack so the enclosing error carries a
// stack trace suitable for out-of-band publication — everywhere else
// in this module, fmt.Errorf/%w is enough.
type FraudEvidence struct {
	GameID       protocol.GameID
	Message      protocol.VerdictMessage
	LocalVerdict protocol.VerdictTag
	Reason       string
}

func (f *FraudEvidence) Error() string {
	return fmt.Sprintf("fraud evidence for game %x: %s (oracle claimed %q, locally computed %q)",
		f.GameID[:4], f.Reason, f.Message.Verdict, f.LocalVerdict)
}

// newFraudError wraps ev with a stack trace via pkg/errors so the
// caller can publish it out-of-band without losing the call site.
func newFraudError(ev *FraudEvidence) error {
	return errors.WithStack(ev)
}
