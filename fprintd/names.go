// Package fprintd is a client for the fprintd fingerprint daemon on the
// D-Bus system bus. It owns the bus connection, resolves the default
// reader and claims it for exclusive use.
//
// See https://fprint.freedesktop.org/fprintd-dev/ for the daemon API.
package fprintd

import "github.com/godbus/dbus/v5"

const (
	// ServiceName is the well-known bus name of the daemon.
	ServiceName = "net.reactivated.Fprint"

	ManagerPath      dbus.ObjectPath = "/net/reactivated/Fprint/Manager"
	ManagerInterface                 = ServiceName + ".Manager"
	DeviceInterface                  = ServiceName + ".Device"

	MethodGetDefaultDevice = ManagerInterface + ".GetDefaultDevice"
	MethodClaim            = DeviceInterface + ".Claim"
	MethodRelease          = DeviceInterface + ".Release"
	MethodVerifyStart      = DeviceInterface + ".VerifyStart"
	MethodVerifyStop       = DeviceInterface + ".VerifyStop"

	// MemberVerifyStatus is the signal carrying (result string, done bool).
	MemberVerifyStatus = "VerifyStatus"
	SignalVerifyStatus = DeviceInterface + "." + MemberVerifyStatus

	// ErrorNoEnrolledPrints is returned by VerifyStart when the user has
	// no fingerprints enrolled on the device.
	ErrorNoEnrolledPrints = ServiceName + ".Error.NoEnrolledPrints"
)

// FingerAny asks the daemon to match against any enrolled finger.
const FingerAny = "any"

// Verification results reported in VerifyStatus.
const (
	StatusMatch             = "verify-match"
	StatusNoMatch           = "verify-no-match"
	StatusRetryScan         = "verify-retry-scan"
	StatusSwipeTooShort     = "verify-swipe-too-short"
	StatusFingerNotCentered = "verify-finger-not-centered"
	StatusRemoveAndRetry    = "verify-remove-and-retry"
	StatusDisconnected      = "verify-disconnected"
	StatusUnknownError      = "verify-unknown-error"
)
