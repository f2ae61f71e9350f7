package driven

import (
	"context"
	"errors"
	"time"
)

// ErrAutomationInteractionFailed is returned when a scripted UI interaction
// against the external application fails. These failures feed the
// orchestrator's retry path.
var ErrAutomationInteractionFailed = errors.New("ui automation interaction failed")

// Automator defines the driven port for the scripted window interaction
// sequence the external application requires at launch. The app only becomes
// trustable when opened through its expected host context, so the sequence
// is a required side effect, not an optimization. One method per action so
// tests can swap in a no-op fake.
type Automator interface {
	// FocusWindow brings the named application's window to the front.
	FocusWindow(ctx context.Context, app string) error

	// ActivateEntry locates the target application's tile inside the host's
	// window and opens it with a double-click.
	ActivateEntry(ctx context.Context, host string) error

	// Pause waits for the fixed duration or until ctx is canceled.
	Pause(ctx context.Context, d time.Duration) error
}
