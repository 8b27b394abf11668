package verify

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/coder/fprint/fprintd"
)

// Outcome is the terminal state of a verification attempt.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomeMatched
	// OutcomeError means the session hit a fatal protocol condition, such
	// as no enrolled prints or a malformed notification.
	OutcomeError
	// OutcomeCancelled means an interrupt or context cancellation was
	// observed before a result arrived.
	OutcomeCancelled
	// OutcomeLoopFault means the wait on the bus failed, e.g. the
	// connection went away.
	OutcomeLoopFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoMatch:
		return "no-match"
	case OutcomeMatched:
		return "matched"
	case OutcomeError:
		return "error"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeLoopFault:
		return "loop-fault"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ErrBusClosed is the cause of OutcomeLoopFault when the bus connection
// stops delivering signals.
var ErrBusClosed = xerrors.New("bus connection closed")

// Result is the resolved outcome of Engine.Run.
type Result struct {
	SessionID uuid.UUID
	Outcome   Outcome
	// Status is the raw result string reported by the daemon, if any.
	Status string
	// Err is set for OutcomeError, OutcomeLoopFault and context
	// cancellation.
	Err error
	// Signal is set when an interrupt cancelled the attempt.
	Signal os.Signal
}

// Matched reports whether the fingerprint matched. Every other outcome is
// a non-match.
func (r Result) Matched() bool {
	return r.Outcome == OutcomeMatched
}

func resolve(s *Session) Result {
	r := Result{SessionID: s.ID, Status: s.Result, Err: s.Err}
	switch {
	case s.State == StateError:
		r.Outcome = OutcomeError
	case s.Result == fprintd.StatusMatch:
		r.Outcome = OutcomeMatched
	default:
		r.Outcome = OutcomeNoMatch
	}
	return r
}
