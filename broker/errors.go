package broker

import "errors"

// Sentinel errors for broker operations.
var (
	ErrAlreadyRunning = errors.New("broker already running")
	ErrAwaitTimeout   = errors.New("await timed out")
)
