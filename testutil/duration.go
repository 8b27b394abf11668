package testutil

import "time"

// Constants for timing out tests. Prefer WaitShort; a verification attempt
// against the fake daemon completes in milliseconds.
const (
	WaitShort  = 10 * time.Second
	WaitMedium = 15 * time.Second
	WaitLong   = 25 * time.Second
)
