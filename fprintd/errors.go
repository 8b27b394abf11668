package fprintd

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"golang.org/x/xerrors"
)

// Stage names the setup step that failed before a device was claimed.
type Stage string

const (
	StageConnect Stage = "connect"
	StageLookup  Stage = "lookup"
	StageClaim   Stage = "claim"
)

// ErrNoDevice is wrapped when the daemon reports no usable reader.
var ErrNoDevice = xerrors.New("no fingerprint device available")

// SetupError is returned for failures that happen before a device claim is
// held. Nothing needs to be released when one is returned.
type SetupError struct {
	Stage Stage
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsStage reports whether err is a SetupError from the given stage.
func IsStage(err error, stage Stage) bool {
	var serr *SetupError
	if !xerrors.As(err, &serr) {
		return false
	}
	return serr.Stage == stage
}

// ErrorName returns the D-Bus error name carried by err, or "" if err is
// not a D-Bus error reply.
func ErrorName(err error) string {
	var derr dbus.Error
	if xerrors.As(err, &derr) {
		return derr.Name
	}
	var pderr *dbus.Error
	if xerrors.As(err, &pderr) && pderr != nil {
		return pderr.Name
	}
	return ""
}
