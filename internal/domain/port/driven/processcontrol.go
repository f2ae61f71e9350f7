package driven

import (
	"context"
	"errors"
)

// ErrProcessControlFailed is returned when an OS-level launch or terminate
// call fails. All retry and timeout policy lives in the orchestrator; the
// adapter performs single attempts only.
var ErrProcessControlFailed = errors.New("process control operation failed")

// ProcessController defines the driven port for black-box OS process
// operations against the external application and its host layer.
type ProcessController interface {
	// IsRunning reports whether a process matching pattern is running.
	IsRunning(ctx context.Context, pattern string) (bool, error)

	// Launch opens the named application.
	Launch(ctx context.Context, app string) error

	// Terminate force-kills processes matching pattern. Matching nothing
	// is not an error.
	Terminate(ctx context.Context, pattern string) error

	// Quit asks the named application to exit gracefully.
	Quit(ctx context.Context, app string) error
}
