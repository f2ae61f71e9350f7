// Package macos drives the external application and its PlayCover host
// through the standard macOS command line surface: pgrep, open, pkill,
// osascript, and cliclick. These are thin black-box OS calls; all retry and
// timeout policy lives in the orchestrator.
package macos

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProcessController = (*Controller)(nil)

// Controller is the macOS implementation of the ProcessController port.
type Controller struct{}

// NewController creates a Controller.
func NewController() *Controller {
	return &Controller{}
}

// IsRunning reports whether any process matches pattern, via pgrep -f.
func (c *Controller) IsRunning(ctx context.Context, pattern string) (bool, error) {
	err := exec.CommandContext(ctx, "pgrep", "-f", pattern).Run()
	if err == nil {
		return true, nil
	}

	// pgrep exits 1 when no process matched.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}

	return false, fmt.Errorf("%w: pgrep %q: %v", driven.ErrProcessControlFailed, pattern, err)
}

// Launch opens the named application via open -a.
func (c *Controller) Launch(ctx context.Context, app string) error {
	if out, err := exec.CommandContext(ctx, "open", "-a", app).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: open -a %q: %v: %s", driven.ErrProcessControlFailed, app, err, out)
	}
	return nil
}

// Terminate force-kills processes matching pattern via pkill -f. Matching
// nothing is not an error.
func (c *Controller) Terminate(ctx context.Context, pattern string) error {
	err := exec.CommandContext(ctx, "pkill", "-f", pattern).Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return nil
	}

	return fmt.Errorf("%w: pkill %q: %v", driven.ErrProcessControlFailed, pattern, err)
}

// Quit asks the named application to exit gracefully via AppleScript.
func (c *Controller) Quit(ctx context.Context, app string) error {
	script := fmt.Sprintf("tell application %q to quit", app)
	if out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: quit %q: %v: %s", driven.ErrProcessControlFailed, app, err, out)
	}
	return nil
}
