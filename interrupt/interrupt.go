// Package interrupt turns delivery of an OS signal into a readiness
// channel that can be selected on next to other I/O.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Source becomes ready once one of its signals has been delivered. It
// remembers only that a signal fired and which one was first.
type Source struct {
	ready chan struct{}

	mu     sync.Mutex
	sig    os.Signal
	fired  bool
	notify chan os.Signal
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// New returns a Source with no OS registration. It is only made ready by
// Fire.
func New() *Source {
	return &Source{ready: make(chan struct{})}
}

// Notify registers interest in sigs, os.Interrupt if none are given. The
// caller must call Stop to restore default signal handling.
func Notify(sigs ...os.Signal) *Source {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
	}
	s := New()
	s.notify = make(chan os.Signal, 1)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	signal.Notify(s.notify, sigs...)
	go func() {
		defer close(s.done)
		select {
		case sig := <-s.notify:
			s.Fire(sig)
		case <-s.stop:
		}
	}()
	return s
}

// Ready is closed once a signal has been delivered and stays closed.
func (s *Source) Ready() <-chan struct{} {
	return s.ready
}

// Signal returns the first signal delivered, or nil.
func (s *Source) Signal() os.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sig
}

// Fired reports whether the source is ready without blocking.
func (s *Source) Fired() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Fire marks the source ready as if sig had been delivered. Only the first
// call has an effect.
func (s *Source) Fire(sig os.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return
	}
	s.fired = true
	s.sig = sig
	close(s.ready)
}

// Stop unregisters from the OS and waits for the watcher goroutine to
// exit. A fired source stays ready. Stop is idempotent.
func (s *Source) Stop() {
	s.mu.Lock()
	if s.closed || s.notify == nil {
		s.closed = true
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	signal.Stop(s.notify)
	close(s.stop)
	<-s.done
}

// Name renders sig the way the kernel names it, e.g. "SIGINT".
func Name(sig os.Signal) string {
	if sig == nil {
		return ""
	}
	if ssig, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(ssig); name != "" {
			return name
		}
	}
	return sig.String()
}
