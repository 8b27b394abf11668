// Package verify runs one fingerprint verification against a claimed
// fprintd device.
//
// The daemon answers VerifyStart asynchronously and reports progress with
// VerifyStatus signals. Engine.Run turns that exchange into a single
// blocking call: it multiplexes the start reply, status signals, an
// interrupt source and a wait ceiling in one loop that owns the session,
// and always stops the verification before returning.
package verify

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"github.com/godbus/dbus/v5"

	"cdr.dev/slog/v3"

	"github.com/coder/fprint/fprintd"
	"github.com/coder/fprint/interrupt"
)

// DefaultPollCeiling bounds a single wait for bus activity. Elapsing it
// only causes the loop to poll again.
const DefaultPollCeiling = 30 * time.Second

// signalBuffer is the capacity of the channel registered for status
// signals.
const signalBuffer = 16

type Options struct {
	Logger slog.Logger
	Clock  quartz.Clock
	// PollCeiling defaults to DefaultPollCeiling.
	PollCeiling time.Duration
	// OnStatus is called with every non-terminal status, such as
	// "verify-retry-scan". It runs inside the dispatch step and must not
	// block.
	OnStatus func(status string)
}

// Engine drives verification sessions over a bus. It holds no per-attempt
// state and may be reused sequentially.
type Engine struct {
	bus      fprintd.Bus
	logger   slog.Logger
	clock    quartz.Clock
	ceiling  time.Duration
	onStatus func(string)
}

func New(bus fprintd.Bus, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.PollCeiling <= 0 {
		opts.PollCeiling = DefaultPollCeiling
	}
	return &Engine{
		bus:      bus,
		logger:   opts.Logger.Named("verify"),
		clock:    opts.Clock,
		ceiling:  opts.PollCeiling,
		onStatus: opts.OnStatus,
	}
}

// Run verifies against any enrolled finger on the claimed device at path
// and blocks until a terminal outcome. cancel may be nil. VerifyStop is
// always sent before Run returns; releasing the device is left to the
// caller.
func (e *Engine) Run(ctx context.Context, path dbus.ObjectPath, cancel *interrupt.Source) Result {
	if cancel == nil {
		cancel = interrupt.New()
	}
	s := newSession(path, e.logger, e.onStatus)
	r := &run{
		engine: e,
		s:      s,
		cancel: cancel,
	}

	result := r.start(ctx)
	e.stop(ctx, s)
	r.teardown(ctx)

	s.logger.Info(ctx, "verification finished",
		slog.F("outcome", result.Outcome.String()),
		slog.F("status", result.Status),
	)
	return result
}

func (e *Engine) stop(ctx context.Context, s *Session) {
	// The caller's context may already be canceled; the stop must still
	// reach the daemon.
	stopCtx := context.WithoutCancel(ctx)
	_ = e.bus.GoWithContext(stopCtx, s.DevicePath, fprintd.MethodVerifyStop, dbus.FlagNoReplyExpected, nil)
	s.logger.Debug(ctx, "sent verify stop")
}

// run is the state of one Engine.Run call.
type run struct {
	engine *Engine
	s      *Session
	cancel *interrupt.Source

	matchOpts []dbus.MatchOption
	watching  bool
	signals   chan *dbus.Signal
	startDone chan *dbus.Call

	// reply and pending hold work received while waiting, to be handled
	// by the next dispatch.
	reply   *dbus.Call
	pending []*dbus.Signal
	fault   error
}

func (r *run) start(ctx context.Context) Result {
	bus := r.engine.bus

	r.matchOpts = []dbus.MatchOption{
		dbus.WithMatchObjectPath(r.s.DevicePath),
		dbus.WithMatchInterface(fprintd.DeviceInterface),
		dbus.WithMatchMember(fprintd.MemberVerifyStatus),
	}
	err := bus.AddMatchSignalContext(ctx, r.matchOpts...)
	if err != nil {
		r.s.logger.Error(ctx, "watch verify status", slog.Error(err))
		r.s.fail(&ProtocolError{Op: "watch " + fprintd.MemberVerifyStatus, Err: err})
		return resolve(r.s)
	}
	r.watching = true
	r.signals = make(chan *dbus.Signal, signalBuffer)
	bus.Signal(r.signals)

	r.startDone = make(chan *dbus.Call, 1)
	_ = bus.GoWithContext(ctx, r.s.DevicePath, fprintd.MethodVerifyStart, 0, r.startDone, fprintd.FingerAny)
	r.s.logger.Debug(ctx, "sent verify start", slog.F("finger", fprintd.FingerAny))

	return r.loop(ctx)
}

func (r *run) teardown(ctx context.Context) {
	if !r.watching {
		return
	}
	bus := r.engine.bus
	bus.RemoveSignal(r.signals)
	err := bus.RemoveMatchSignalContext(context.WithoutCancel(ctx), r.matchOpts...)
	if err != nil {
		r.s.logger.Debug(ctx, "remove verify status watch", slog.Error(err))
	}
}

func (r *run) loop(ctx context.Context) Result {
	for {
		if res, ok := r.cancelled(ctx); ok {
			return res
		}

		n := r.dispatch(ctx)
		if r.fault != nil {
			return r.loopFault(ctx)
		}
		if r.s.State == StateError {
			return resolve(r.s)
		}
		if r.s.Started && r.s.Result != "" {
			return resolve(r.s)
		}
		if n > 0 {
			continue
		}

		r.fault = r.wait(ctx)
		if r.fault != nil {
			return r.loopFault(ctx)
		}
	}
}

func (r *run) cancelled(ctx context.Context) (Result, bool) {
	select {
	case <-r.cancel.Ready():
		sig := r.cancel.Signal()
		r.s.logger.Warn(ctx, "verification cancelled", slog.F("signal", interrupt.Name(sig)))
		return Result{
			SessionID: r.s.ID,
			Outcome:   OutcomeCancelled,
			Status:    r.s.Result,
			Signal:    sig,
		}, true
	case <-ctx.Done():
		r.s.logger.Warn(ctx, "verification cancelled", slog.Error(ctx.Err()))
		return Result{
			SessionID: r.s.ID,
			Outcome:   OutcomeCancelled,
			Status:    r.s.Result,
			Err:       ctx.Err(),
		}, true
	default:
		return Result{}, false
	}
}

func (r *run) loopFault(ctx context.Context) Result {
	r.s.logger.Error(ctx, "wait for bus activity", slog.Error(r.fault))
	return Result{
		SessionID: r.s.ID,
		Outcome:   OutcomeLoopFault,
		Status:    r.s.Result,
		Err:       r.fault,
	}
}

// dispatch handles at most one unit of bus work and reports how many it
// handled. The start reply always goes first so that status signals are
// judged against an acknowledged start.
func (r *run) dispatch(ctx context.Context) int {
	if r.reply != nil {
		call := r.reply
		r.reply = nil
		r.s.handleStartReply(ctx, call)
		return 1
	}
	select {
	case call := <-r.startDone:
		r.startDone = nil
		r.s.handleStartReply(ctx, call)
		return 1
	default:
	}

	if len(r.pending) > 0 {
		sig := r.pending[0]
		r.pending = r.pending[1:]
		r.s.handleStatus(ctx, sig)
		return 1
	}
	select {
	case sig, ok := <-r.signals:
		if !ok {
			r.fault = ErrBusClosed
			return 1
		}
		r.s.handleStatus(ctx, sig)
		return 1
	default:
		return 0
	}
}

// wait blocks until the bus has work, the attempt is cancelled or the
// ceiling elapses.
func (r *run) wait(ctx context.Context) error {
	timer := r.engine.clock.NewTimer(r.engine.ceiling, "verify", "wait")
	defer timer.Stop()

	select {
	case call := <-r.startDone:
		r.startDone = nil
		r.reply = call
	case sig, ok := <-r.signals:
		if !ok {
			return ErrBusClosed
		}
		r.pending = append(r.pending, sig)
	case <-r.cancel.Ready():
	case <-ctx.Done():
	case <-timer.C:
		r.s.logger.Debug(ctx, "wait ceiling elapsed", slog.F("ceiling", r.engine.ceiling))
	}
	return nil
}
