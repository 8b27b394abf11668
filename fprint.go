// Package fprint authenticates the local user with the default fingerprint
// reader managed by fprintd.
//
// Authenticate runs one attempt end to end: connect to the system bus,
// resolve and claim the default device, verify, and release. Setup
// failures are returned as errors; once the device is claimed every
// outcome, including cancellation, is reported through verify.Result and
// the device is always released.
package fprint

import (
	"context"
	"os"
	"time"

	"github.com/coder/quartz"
	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"

	"github.com/coder/fprint/fprintd"
	"github.com/coder/fprint/interrupt"
	"github.com/coder/fprint/verify"
)

// Dialer opens a bus connection. An empty address means the system bus.
type Dialer func(ctx context.Context, address string) (fprintd.Bus, error)

// DialSystemBus is the default Dialer.
func DialSystemBus(ctx context.Context, address string) (fprintd.Bus, error) {
	conn, err := fprintd.Open(ctx, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Options struct {
	Logger slog.Logger
	Clock  quartz.Clock
	// Dial defaults to DialSystemBus.
	Dial       Dialer
	BusAddress string
	// PollCeiling bounds each wait for daemon activity.
	PollCeiling time.Duration
	// Interrupt cancels the attempt when ready. When nil, os.Interrupt is
	// registered for the duration of the verification.
	Interrupt *interrupt.Source
	OnStatus  func(status string)
}

func (o Options) dial(ctx context.Context) (fprintd.Bus, error) {
	dial := o.Dial
	if dial == nil {
		dial = DialSystemBus
	}
	bus, err := dial(ctx, o.BusAddress)
	if err != nil {
		var serr *fprintd.SetupError
		if xerrors.As(err, &serr) {
			return nil, err
		}
		return nil, &fprintd.SetupError{Stage: fprintd.StageConnect, Err: err}
	}
	return bus, nil
}

// Authenticate runs one verification attempt against the default device.
// The returned error is always a *fprintd.SetupError and is only set when
// no device was claimed.
func Authenticate(ctx context.Context, opts Options) (verify.Result, error) {
	logger := opts.Logger

	bus, err := opts.dial(ctx)
	if err != nil {
		return verify.Result{}, err
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Debug(ctx, "close bus", slog.Error(err))
		}
	}()

	device, err := claimDefault(ctx, bus, logger)
	if err != nil {
		return verify.Result{}, err
	}
	// Release must reach the daemon even when ctx was the reason the
	// attempt ended.
	defer func() {
		_ = device.Release(context.WithoutCancel(ctx))
	}()

	src := opts.Interrupt
	if src == nil {
		src = interrupt.Notify(os.Interrupt)
		defer src.Stop()
	}

	engine := verify.New(bus, verify.Options{
		Logger:      logger,
		Clock:       opts.Clock,
		PollCeiling: opts.PollCeiling,
		OnStatus:    opts.OnStatus,
	})
	return engine.Run(ctx, device.Path(), src), nil
}

func claimDefault(ctx context.Context, bus fprintd.Bus, logger slog.Logger) (*fprintd.Device, error) {
	path, err := fprintd.DefaultDevice(ctx, bus)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "found default device", slog.F("device", string(path)))
	return fprintd.Claim(ctx, bus, path, logger.Named("device"))
}

// DevicePresent reports whether the daemon has a default device. A lookup
// failure is reported as absent; only a failure to reach the bus is an
// error.
func DevicePresent(ctx context.Context, opts Options) (bool, dbus.ObjectPath, error) {
	bus, err := opts.dial(ctx)
	if err != nil {
		return false, "", err
	}
	defer func() { _ = bus.Close() }()

	path, err := fprintd.DefaultDevice(ctx, bus)
	if err != nil {
		opts.Logger.Debug(ctx, "no default device", slog.Error(err))
		return false, "", nil
	}
	return true, path, nil
}

// SupportsBiometrics reports whether a usable fingerprint reader exists.
// It is a zero-argument entry point for host runtimes.
func SupportsBiometrics() bool {
	ok, _, err := DevicePresent(context.Background(), Options{})
	return err == nil && ok
}

// AuthenticateBiometric runs one verification and reports whether it
// matched. Every other outcome, including setup failures, is false.
func AuthenticateBiometric() bool {
	res, err := Authenticate(context.Background(), Options{})
	return err == nil && res.Matched()
}
