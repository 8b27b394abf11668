// Package fprintdtest provides an in-memory fprintd daemon that satisfies
// fprintd.Bus, for tests that drive verification end to end.
package fprintdtest

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"

	"github.com/coder/fprint/fprintd"
)

// DevicePath is the reader path served by a new Daemon.
const DevicePath dbus.ObjectPath = "/net/reactivated/Fprint/Device/0"

// Call is one request received by the daemon.
type Call struct {
	Path   dbus.ObjectPath
	Method string
	Args   []interface{}
}

// Options configures the fake daemon's replies.
type Options struct {
	// Device is returned from GetDefaultDevice. Defaults to DevicePath; set
	// NoDevice to return an empty path instead.
	Device   dbus.ObjectPath
	NoDevice bool

	LookupErr  error
	ClaimErr   error
	ReleaseErr error
	// StartErr is the reply to VerifyStart.
	StartErr error
	// HoldStart keeps VerifyStart unanswered until ReplyStart is called.
	HoldStart bool
	MatchErr  error
}

// Daemon is a fake fprintd reachable through fprintd.Bus.
type Daemon struct {
	opts Options

	mu         sync.Mutex
	calls      []Call
	signals    []chan<- *dbus.Signal
	matches    int
	closed     bool
	startCall  *dbus.Call
	startOnce  sync.Once
	verifyCh   chan struct{}
	claimed    bool
	closeCount int
}

var _ fprintd.Bus = (*Daemon)(nil)

func New(opts Options) *Daemon {
	if opts.Device == "" && !opts.NoDevice {
		opts.Device = DevicePath
	}
	return &Daemon{
		opts:     opts,
		verifyCh: make(chan struct{}),
	}
}

// ErrorReply builds a D-Bus error reply with the given name.
func ErrorReply(name string, msg string) error {
	return dbus.Error{Name: name, Body: []interface{}{msg}}
}

func (d *Daemon) record(path dbus.ObjectPath, method string, args []interface{}) {
	d.calls = append(d.calls, Call{Path: path, Method: method, Args: args})
}

func (d *Daemon) CallWithContext(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) *dbus.Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(path, method, args)

	call := &dbus.Call{
		Destination: fprintd.ServiceName,
		Path:        path,
		Method:      method,
		Args:        args,
	}
	if d.closed {
		call.Err = dbus.ErrClosed
		return call
	}
	if err := ctx.Err(); err != nil {
		call.Err = err
		return call
	}
	switch method {
	case fprintd.MethodGetDefaultDevice:
		if d.opts.LookupErr != nil {
			call.Err = d.opts.LookupErr
			break
		}
		call.Body = []interface{}{d.opts.Device}
	case fprintd.MethodClaim:
		switch {
		case d.opts.ClaimErr != nil:
			call.Err = d.opts.ClaimErr
		case d.claimed:
			call.Err = ErrorReply(fprintd.ServiceName+".Error.AlreadyInUse", "device already claimed")
		default:
			d.claimed = true
		}
	case fprintd.MethodRelease:
		switch {
		case d.opts.ReleaseErr != nil:
			call.Err = d.opts.ReleaseErr
		case !d.claimed:
			call.Err = ErrorReply(fprintd.ServiceName+".Error.ClaimDevice", "device was not claimed")
		default:
			d.claimed = false
		}
	default:
		call.Err = xerrors.Errorf("unknown method %q", method)
	}
	return call
}

func (d *Daemon) GoWithContext(_ context.Context, path dbus.ObjectPath, method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(path, method, args)

	if ch == nil {
		ch = make(chan *dbus.Call, 1)
	}
	call := &dbus.Call{
		Destination: fprintd.ServiceName,
		Path:        path,
		Method:      method,
		Args:        args,
		Done:        ch,
	}
	switch method {
	case fprintd.MethodVerifyStart:
		call.Err = d.opts.StartErr
		if d.opts.HoldStart {
			d.startCall = call
		} else {
			ch <- call
		}
		d.startOnce.Do(func() { close(d.verifyCh) })
	case fprintd.MethodVerifyStop:
		if flags&dbus.FlagNoReplyExpected == 0 {
			ch <- call
		}
	default:
		call.Err = xerrors.Errorf("unknown async method %q", method)
		ch <- call
	}
	return call
}

// ReplyStart answers a VerifyStart held by Options.HoldStart with err.
func (d *Daemon) ReplyStart(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startCall == nil {
		return
	}
	call := d.startCall
	d.startCall = nil
	call.Err = err
	call.Done <- call
}

// VerifyStarted is closed once VerifyStart has been received.
func (d *Daemon) VerifyStarted() <-chan struct{} {
	return d.verifyCh
}

func (d *Daemon) AddMatchSignalContext(_ context.Context, _ ...dbus.MatchOption) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opts.MatchErr != nil {
		return d.opts.MatchErr
	}
	d.matches++
	return nil
}

func (d *Daemon) RemoveMatchSignalContext(_ context.Context, _ ...dbus.MatchOption) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.matches > 0 {
		d.matches--
	}
	return nil
}

func (d *Daemon) Signal(ch chan<- *dbus.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		close(ch)
		return
	}
	d.signals = append(d.signals, ch)
}

func (d *Daemon) RemoveSignal(ch chan<- *dbus.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, c := range d.signals {
		if c == ch {
			d.signals = append(d.signals[:i], d.signals[i+1:]...)
			return
		}
	}
}

// Emit delivers sig to every registered signal channel.
func (d *Daemon) Emit(sig *dbus.Signal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.signals {
		ch <- sig
	}
}

// EmitStatus emits a VerifyStatus signal for the default device.
func (d *Daemon) EmitStatus(result string, done bool) {
	d.Emit(&dbus.Signal{
		Sender: fprintd.ServiceName,
		Path:   d.opts.Device,
		Name:   fprintd.SignalVerifyStatus,
		Body:   []interface{}{result, done},
	})
}

// Drop simulates losing the bus: signal channels are closed as godbus
// does on disconnect.
func (d *Daemon) Drop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropLocked()
}

func (d *Daemon) dropLocked() {
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.signals {
		close(ch)
	}
	d.signals = nil
}

func (d *Daemon) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCount++
	d.dropLocked()
	return nil
}

// Calls returns every method received, in order.
func (d *Daemon) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Methods returns the short member names of every call received, in order.
func (d *Daemon) Methods() []string {
	calls := d.Calls()
	methods := make([]string, 0, len(calls))
	for _, c := range calls {
		methods = append(methods, shortName(c.Method))
	}
	return methods
}

// Count returns how many times method was called. method may be a short
// member name such as "Release".
func (d *Daemon) Count(method string) int {
	n := 0
	for _, m := range d.Methods() {
		if m == shortName(method) {
			n++
		}
	}
	return n
}

// Claimed reports whether the device is currently claimed.
func (d *Daemon) Claimed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claimed
}

// Matches returns the number of match rules currently installed.
func (d *Daemon) Matches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.matches
}

// Closed reports how many times Close was called.
func (d *Daemon) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeCount
}

func shortName(method string) string {
	for i := len(method) - 1; i >= 0; i-- {
		if method[i] == '.' {
			return method[i+1:]
		}
	}
	return method
}
