package model

import "time"

// SessionState represents the position of an automation session in its
// launch → populate → extract → close lifecycle.
type SessionState string

const (
	SessionIdle                 SessionState = "idle"
	SessionCheckingRunning      SessionState = "checking_running"
	SessionLaunching            SessionState = "launching"
	SessionWaitingForPopulation SessionState = "waiting_for_population"
	SessionExtracting           SessionState = "extracting"
	SessionClosing              SessionState = "closing"
	SessionRetrying             SessionState = "retrying"
	SessionDone                 SessionState = "done"
	SessionFailed               SessionState = "failed"
)

// AutomationSession is one end-to-end run against the external application.
// At most one session is active system-wide.
type AutomationSession struct {
	State     SessionState
	StartedAt time.Time
	Deadline  time.Time
	Attempt   int
}

// RunPhase is the coarse orchestrator status exposed to consumers.
type RunPhase string

const (
	PhaseIdle    RunPhase = "idle"
	PhaseRunning RunPhase = "running"
	PhaseFailed  RunPhase = "failed"
)

// OrchestratorStatus is the consumer-facing view of the orchestrator.
// Reason is set only when Phase is PhaseFailed.
type OrchestratorStatus struct {
	Phase  RunPhase
	State  SessionState
	Reason string
}
