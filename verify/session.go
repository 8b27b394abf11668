package verify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"

	"github.com/coder/fprint/fprintd"
)

// State is the protocol state of a session. It only ever moves from
// StateIncomplete to StateError.
type State int

const (
	StateIncomplete State = iota
	StateError
)

func (s State) String() string {
	switch s {
	case StateIncomplete:
		return "incomplete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNoEnrolledPrints is recorded when VerifyStart fails because the user
// has nothing enrolled.
var ErrNoEnrolledPrints = xerrors.New("no fingerprints enrolled")

// ProtocolError is recorded when the daemon sends something the session
// cannot interpret.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Session is the state of one verification attempt. It is owned by the
// goroutine running Engine.Run; the handlers below are only called from
// its dispatch step.
type Session struct {
	ID         uuid.UUID
	DevicePath dbus.ObjectPath
	Started    bool
	State      State
	// Result is the terminal status reported by the daemon, empty until a
	// done notification arrives after the start was acknowledged.
	Result string
	// Err explains why State is StateError.
	Err error

	logger   slog.Logger
	onStatus func(status string)
}

func newSession(path dbus.ObjectPath, logger slog.Logger, onStatus func(string)) *Session {
	id := uuid.New()
	return &Session{
		ID:         id,
		DevicePath: path,
		State:      StateIncomplete,
		logger:     logger.With(slog.F("session_id", id), slog.F("device", string(path))),
		onStatus:   onStatus,
	}
}

func (s *Session) fail(err error) {
	if s.State == StateError {
		return
	}
	s.State = StateError
	s.Err = err
}

// handleStartReply runs when the VerifyStart call completes.
func (s *Session) handleStartReply(ctx context.Context, call *dbus.Call) {
	if call.Err != nil {
		if fprintd.ErrorName(call.Err) == fprintd.ErrorNoEnrolledPrints {
			s.logger.Error(ctx, "No fingerprints enrolled", slog.Error(call.Err))
			s.fail(ErrNoEnrolledPrints)
			return
		}
		// Other faults do not end the attempt; cancellation still does.
		s.logger.Warn(ctx, "verify start failed", slog.Error(call.Err))
		return
	}
	s.Started = true
	s.logger.Debug(ctx, "verification started")
}

// handleStatus runs for every signal routed to the session's channel.
func (s *Session) handleStatus(ctx context.Context, sig *dbus.Signal) {
	if sig.Name != fprintd.SignalVerifyStatus || sig.Path != s.DevicePath {
		return
	}

	var (
		result string
		done   bool
	)
	err := dbus.Store(sig.Body, &result, &done)
	if err != nil {
		s.logger.Error(ctx, "malformed verify status", slog.Error(err))
		s.fail(&ProtocolError{Op: "decode " + fprintd.MemberVerifyStatus, Err: err})
		return
	}
	if !s.Started {
		s.logger.Debug(ctx, "ignoring status before start", slog.F("status", result), slog.F("done", done))
		return
	}

	s.logger.Debug(ctx, "verify status", slog.F("status", result), slog.F("done", done))
	if !done {
		if s.onStatus != nil {
			s.onStatus(result)
		}
		return
	}
	if result != "" && s.Result == "" {
		s.Result = result
	}
}
