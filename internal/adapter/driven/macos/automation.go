package macos

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Automator = (*Automator)(nil)

// Automator is the macOS implementation of the Automator port. It locates
// the target application's tile inside the host's library window through
// the Accessibility API (osascript) and opens it with cliclick.
type Automator struct{}

// NewAutomator creates an Automator.
func NewAutomator() *Automator {
	return &Automator{}
}

// FocusWindow brings the named application's window to the front.
func (a *Automator) FocusWindow(ctx context.Context, app string) error {
	script := fmt.Sprintf("tell application %q to activate", app)
	if out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: focus %q: %v: %s", driven.ErrAutomationInteractionFailed, app, err, out)
	}
	return nil
}

// entryPositionScript resolves the center of the first app tile in the
// host's library window. The element path matches PlayCover's current
// window hierarchy.
const entryPositionScript = `
tell application "System Events"
	tell process %q
		try
			set appTile to UI element 1 of scroll area 1 of group 2 of splitter group 1 of group 1 of window 1
			set {xPos, yPos} to position of appTile
			set {xSize, ySize} to size of appTile
			set centerX to (xPos + (xSize / 2)) as integer
			set centerY to (yPos + (ySize / 2)) as integer
			return (centerX as text) & "," & (centerY as text)
		on error
			return "error"
		end try
	end tell
end tell
`

// ActivateEntry locates the target tile inside the host's window and
// double-clicks it. The double-click through the host is what makes the
// target app believe it was opened in its expected context.
func (a *Automator) ActivateEntry(ctx context.Context, host string) error {
	script := fmt.Sprintf(entryPositionScript, host)
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: locate entry in %q: %v: %s", driven.ErrAutomationInteractionFailed, host, err, out)
	}

	position := strings.TrimSpace(string(out))
	if position == "error" || !strings.Contains(position, ",") {
		return fmt.Errorf("%w: entry not found in %q window", driven.ErrAutomationInteractionFailed, host)
	}

	if out, err := exec.CommandContext(ctx, "cliclick", "dc:"+position).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: double-click at %s: %v: %s", driven.ErrAutomationInteractionFailed, position, err, out)
	}
	return nil
}

// Pause waits for the fixed duration or until ctx is canceled.
func (a *Automator) Pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
