package fprintd

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"

	"cdr.dev/slog/v3"
)

// DefaultDevice asks the daemon manager for the object path of the default
// fingerprint reader.
func DefaultDevice(ctx context.Context, bus Bus) (dbus.ObjectPath, error) {
	call := bus.CallWithContext(ctx, ManagerPath, MethodGetDefaultDevice)
	if call.Err != nil {
		return "", &SetupError{Stage: StageLookup, Err: xerrors.Errorf("get default device: %w", call.Err)}
	}
	var path dbus.ObjectPath
	err := call.Store(&path)
	if err != nil {
		return "", &SetupError{Stage: StageLookup, Err: xerrors.Errorf("decode default device: %w", err)}
	}
	if path == "" || !path.IsValid() {
		return "", &SetupError{Stage: StageLookup, Err: ErrNoDevice}
	}
	return path, nil
}

// Device is a reader claimed for exclusive use. It must be released
// exactly once.
type Device struct {
	bus    Bus
	path   dbus.ObjectPath
	logger slog.Logger

	mu       sync.Mutex
	released bool
}

// Claim takes exclusive use of the reader at path. An empty application id
// is sent, which the daemon treats as an unrestricted claim.
func Claim(ctx context.Context, bus Bus, path dbus.ObjectPath, logger slog.Logger) (*Device, error) {
	if path == "" {
		return nil, &SetupError{Stage: StageClaim, Err: ErrNoDevice}
	}
	call := bus.CallWithContext(ctx, path, MethodClaim, "")
	if call.Err != nil {
		return nil, &SetupError{Stage: StageClaim, Err: xerrors.Errorf("claim %s: %w", path, call.Err)}
	}
	logger = logger.With(slog.F("device", string(path)))
	logger.Debug(ctx, "claimed device")
	return &Device{
		bus:    bus,
		path:   path,
		logger: logger,
	}, nil
}

func (d *Device) Path() dbus.ObjectPath {
	return d.path
}

// Release gives the reader back to the daemon. Failures are logged and
// returned for inspection only; they never affect a verification outcome.
// Releasing twice logs a warning and does not contact the daemon again.
func (d *Device) Release(ctx context.Context) error {
	d.mu.Lock()
	already := d.released
	d.released = true
	d.mu.Unlock()
	if already {
		d.logger.Warn(ctx, "device already released")
		return nil
	}

	call := d.bus.CallWithContext(ctx, d.path, MethodRelease)
	if call.Err != nil {
		d.logger.Warn(ctx, "release device", slog.Error(call.Err))
		return xerrors.Errorf("release %s: %w", d.path, call.Err)
	}
	d.logger.Debug(ctx, "released device")
	return nil
}
