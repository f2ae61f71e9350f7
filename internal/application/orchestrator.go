// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

// ErrSessionActive is returned by Run when another automation session is
// already in flight. Callers treat it as a no-op, not a failure: sessions
// are never queued, which prevents overlapping launch/close sequences from
// racing each other.
var ErrSessionActive = errors.New("an automation session is already active")

// ErrPopulationTimeout is returned when the credential store never became
// populated within the per-attempt deadline across all allowed attempts.
var ErrPopulationTimeout = errors.New("credential store population timed out")

// OrchestratorConfig carries the tunables of the automation flow. Zero
// values fall back to defaults.
type OrchestratorConfig struct {
	// HostApp is the compatibility-layer application that hosts the target.
	HostApp string
	// TargetProcess is the pgrep/pkill pattern for the target application.
	TargetProcess string
	// SettleDelay is the fixed pause after launching the host before the
	// scripted window interaction starts.
	SettleDelay time.Duration
	// PopulationTimeout is the per-attempt deadline for the store to become
	// populated after launch.
	PopulationTimeout time.Duration
	// PopulationPoll is the interval between store probes while waiting.
	PopulationPoll time.Duration
	// MaxAttempts bounds how many times the launch sequence is re-issued.
	MaxAttempts int
	// CloseGrace bounds the best-effort close step so process shutdown is
	// never blocked indefinitely.
	CloseGrace time.Duration
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.HostApp == "" {
		c.HostApp = "PlayCover"
	}
	if c.TargetProcess == "" {
		c.TargetProcess = "com.duosecurity.DuoMobile"
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = time.Second
	}
	if c.PopulationTimeout <= 0 {
		c.PopulationTimeout = 25 * time.Second
	}
	if c.PopulationPoll <= 0 {
		c.PopulationPoll = 2 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = 3 * time.Second
	}
}

// Orchestrator runs the launch → populate → extract → close flow against
// the external application. The app is launched only when needed and always
// closed afterward: its continued presence is unnecessary (secrets are
// durable in the store) and undesirable.
//
// A single-slot guard ensures at most one session is active system-wide.
type Orchestrator struct {
	source driven.AccountSource
	proc   driven.ProcessController
	ui     driven.Automator
	cfg    OrchestratorConfig
	now    func() time.Time

	mu      sync.Mutex
	active  bool
	session model.AutomationSession
	lastErr error
}

// NewOrchestrator creates an Orchestrator with all required dependencies.
func NewOrchestrator(source driven.AccountSource, proc driven.ProcessController, ui driven.Automator, cfg OrchestratorConfig) *Orchestrator {
	cfg.applyDefaults()
	return &Orchestrator{
		source: source,
		proc:   proc,
		ui:     ui,
		cfg:    cfg,
		now:    time.Now,
		session: model.AutomationSession{
			State: model.SessionIdle,
		},
	}
}

// Run executes one full automation session and returns the freshly
// extracted account set. Returns ErrSessionActive without side effects when
// a session is already in flight.
func (o *Orchestrator) Run(ctx context.Context) ([]model.Account, error) {
	if !o.begin() {
		return nil, ErrSessionActive
	}

	accounts, err := o.run(ctx)
	o.finish(err)
	return accounts, err
}

// Status reports the coarse orchestrator phase for consumers. After a
// failed session the failure reason is retained until the next session
// starts.
func (o *Orchestrator) Status() model.OrchestratorStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case o.active:
		return model.OrchestratorStatus{Phase: model.PhaseRunning, State: o.session.State}
	case o.lastErr != nil:
		return model.OrchestratorStatus{Phase: model.PhaseFailed, State: model.SessionFailed, Reason: o.lastErr.Error()}
	default:
		return model.OrchestratorStatus{Phase: model.PhaseIdle, State: model.SessionIdle}
	}
}

// Session returns a copy of the current (or most recent) session.
func (o *Orchestrator) Session() model.AutomationSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// begin claims the single session slot. Returns false when already taken.
func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active {
		return false
	}
	o.active = true
	o.lastErr = nil
	o.session = model.AutomationSession{
		State:     model.SessionCheckingRunning,
		StartedAt: o.now(),
		Attempt:   1,
	}
	slog.Info("automation session started")
	return true
}

func (o *Orchestrator) finish(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.active = false
	if err != nil {
		o.session.State = model.SessionFailed
		o.lastErr = err
		slog.Error("automation session failed", "error", err, "attempt", o.session.Attempt)
		return
	}
	o.session.State = model.SessionDone
	slog.Info("automation session complete", "duration", o.now().Sub(o.session.StartedAt).Round(time.Millisecond))
}

func (o *Orchestrator) setState(state model.SessionState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.State = state
	slog.Debug("session state", "state", state, "attempt", o.session.Attempt)
}

func (o *Orchestrator) beginAttempt(attempt int, deadline time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.Attempt = attempt
	o.session.Deadline = deadline
}

func (o *Orchestrator) run(ctx context.Context) ([]model.Account, error) {
	running, err := o.proc.IsRunning(ctx, o.cfg.TargetProcess)
	if err != nil {
		slog.Warn("process check failed, assuming not running", "error", err)
		running = false
	}

	// Fast path: already running with a populated store means the launch
	// sequence can be skipped entirely.
	if running {
		if probe, err := o.source.LoadAccounts(ctx); err == nil && len(probe) > 0 {
			slog.Info("target already running with populated store, skipping launch")
			return o.extractAndClose(ctx)
		}
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		o.beginAttempt(attempt, o.now().Add(o.cfg.SettleDelay+o.cfg.PopulationTimeout))

		if err := o.launchSequence(ctx); err != nil {
			lastErr = err
		} else if err := o.waitForPopulation(ctx); err != nil {
			lastErr = err
		} else {
			return o.extractAndClose(ctx)
		}

		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		if attempt >= o.cfg.MaxAttempts {
			break
		}
		o.setState(model.SessionRetrying)
		slog.Warn("attempt failed, retrying", "attempt", attempt, "max_attempts", o.cfg.MaxAttempts, "error", lastErr)
	}

	// Terminal failure still closes the external application.
	o.closeTarget(ctx)
	if lastErr == nil {
		lastErr = ErrPopulationTimeout
	}
	return nil, lastErr
}

// launchSequence opens the host and performs the scripted interaction that
// opens the target through it. The interaction is a required side effect:
// the target only trusts a launch that came through its host context.
func (o *Orchestrator) launchSequence(ctx context.Context) error {
	o.setState(model.SessionLaunching)

	if err := o.proc.Launch(ctx, o.cfg.HostApp); err != nil {
		return fmt.Errorf("launch host: %w", err)
	}
	if err := o.ui.Pause(ctx, o.cfg.SettleDelay); err != nil {
		return err
	}
	if err := o.ui.FocusWindow(ctx, o.cfg.HostApp); err != nil {
		return fmt.Errorf("focus host: %w", err)
	}
	if err := o.ui.ActivateEntry(ctx, o.cfg.HostApp); err != nil {
		return fmt.Errorf("open target: %w", err)
	}
	return nil
}

// waitForPopulation polls the store until it yields accounts or the
// per-attempt deadline elapses.
func (o *Orchestrator) waitForPopulation(ctx context.Context) error {
	o.setState(model.SessionWaitingForPopulation)

	deadline := time.NewTimer(o.cfg.PopulationTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(o.cfg.PopulationPoll)
	defer poll.Stop()

	for {
		accounts, err := o.source.LoadAccounts(ctx)
		if err == nil && len(accounts) > 0 {
			return nil
		}
		if err != nil && !errors.Is(err, driven.ErrStoreUnavailable) && !errors.Is(err, driven.ErrNoAccountsFound) {
			slog.Warn("store probe failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: after %s", ErrPopulationTimeout, o.cfg.PopulationTimeout)
		case <-poll.C:
		}
	}
}

// extractAndClose re-reads the store once more for the canonical result and
// then always closes the external application.
func (o *Orchestrator) extractAndClose(ctx context.Context) ([]model.Account, error) {
	o.setState(model.SessionExtracting)
	accounts, err := o.source.LoadAccounts(ctx)

	o.closeTarget(ctx)

	if err != nil {
		return nil, fmt.Errorf("extract accounts: %w", err)
	}
	slog.Info("accounts extracted", "count", len(accounts))
	return accounts, nil
}

// closeTarget issues best-effort termination of the target and then the
// host. Failures are logged, not propagated: they must not invalidate an
// already-extracted account set. The step survives parent cancellation for
// a short grace period so shutdown never leaves the external app running
// nor blocks process exit.
func (o *Orchestrator) closeTarget(ctx context.Context) {
	o.setState(model.SessionClosing)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CloseGrace)
	defer cancel()

	if err := o.proc.Terminate(closeCtx, o.cfg.TargetProcess); err != nil {
		slog.Warn("terminate target failed", "process", o.cfg.TargetProcess, "error", err)
	}
	_ = o.ui.Pause(closeCtx, 500*time.Millisecond)
	if err := o.proc.Quit(closeCtx, o.cfg.HostApp); err != nil {
		slog.Warn("quit host failed", "app", o.cfg.HostApp, "error", err)
	}
}
