package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

func TestOrchestrator_FastPathSkipsLaunch(t *testing.T) {
	source := &fakeSource{queue: []sourceResponse{{accounts: testAccountSet()}}}
	proc := &fakeProc{running: true}
	ui := &fakeUI{}
	orch := NewOrchestrator(source, proc, ui, fastConfig())

	accounts, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAccountSet(), accounts)

	// Already running with a populated store: no launch, no interaction.
	assert.Empty(t, proc.launched)
	assert.Empty(t, ui.focused)
	// The close step still runs.
	assert.Equal(t, []string{"com.duosecurity.DuoMobile"}, proc.terminated)
	assert.Equal(t, []string{"PlayCover"}, proc.quit)

	assert.Equal(t, model.PhaseIdle, orch.Status().Phase)
	assert.Equal(t, model.SessionDone, orch.Session().State)
}

func TestOrchestrator_LaunchFlowExtractsAfterPopulation(t *testing.T) {
	source := &fakeSource{queue: []sourceResponse{
		{err: driven.ErrStoreUnavailable}, // first probe: app still starting
		{accounts: testAccountSet()},      // populated from here on
	}}
	proc := &fakeProc{running: false}
	ui := &fakeUI{}
	orch := NewOrchestrator(source, proc, ui, fastConfig())

	accounts, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAccountSet(), accounts)

	// Full interaction sequence against the host.
	assert.Equal(t, []string{"PlayCover"}, proc.launched)
	assert.Equal(t, []string{"PlayCover"}, ui.focused)
	assert.Equal(t, []string{"PlayCover"}, ui.activated)
	assert.True(t, proc.closedOnce())

	// Wait probe, success probe, then one canonical extraction read.
	assert.GreaterOrEqual(t, source.callCount(), 3)
}

func TestOrchestrator_PopulationTimeoutRetriesThenCloses(t *testing.T) {
	source := &fakeSource{} // always ErrNoAccountsFound
	proc := &fakeProc{running: false}
	ui := &fakeUI{}
	orch := NewOrchestrator(source, proc, ui, fastConfig())

	accounts, err := orch.Run(context.Background())
	assert.Nil(t, accounts)
	require.ErrorIs(t, err, ErrPopulationTimeout)

	// Launch sequence re-issued per attempt, close issued exactly once.
	assert.Equal(t, 2, proc.launchCount())
	assert.True(t, proc.closedOnce())
	assert.Equal(t, 2, orch.Session().Attempt)

	status := orch.Status()
	assert.Equal(t, model.PhaseFailed, status.Phase)
	assert.Contains(t, status.Reason, "timed out")
}

func TestOrchestrator_InteractionFailureRetries(t *testing.T) {
	source := &fakeSource{}
	proc := &fakeProc{running: false}
	ui := &fakeUI{activateErr: driven.ErrAutomationInteractionFailed}
	orch := NewOrchestrator(source, proc, ui, fastConfig())

	_, err := orch.Run(context.Background())
	require.ErrorIs(t, err, driven.ErrAutomationInteractionFailed)

	assert.Equal(t, 2, proc.launchCount())
	assert.True(t, proc.closedOnce())
}

func TestOrchestrator_ExtractFailureStillCloses(t *testing.T) {
	source := &fakeSource{queue: []sourceResponse{
		{accounts: testAccountSet()},      // fast-path probe
		{err: driven.ErrStoreUnavailable}, // canonical read fails
	}}
	proc := &fakeProc{running: true}
	orch := NewOrchestrator(source, proc, &fakeUI{}, fastConfig())

	accounts, err := orch.Run(context.Background())
	assert.Nil(t, accounts)
	require.ErrorIs(t, err, driven.ErrStoreUnavailable)
	assert.True(t, proc.closedOnce())
}

func TestOrchestrator_SingleSessionGuard(t *testing.T) {
	gate := make(chan struct{})
	source := &fakeSource{queue: []sourceResponse{{accounts: testAccountSet()}}, gate: gate}
	proc := &fakeProc{running: true}
	orch := NewOrchestrator(source, proc, &fakeUI{}, fastConfig())

	done := make(chan error, 1)
	go func() {
		_, err := orch.Run(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return orch.Status().Phase == model.PhaseRunning
	}, time.Second, time.Millisecond)

	// A second run while one is active is rejected, not queued.
	_, err := orch.Run(context.Background())
	require.ErrorIs(t, err, ErrSessionActive)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, model.PhaseIdle, orch.Status().Phase)
}

func TestOrchestrator_ProcessCheckFailureFallsBackToLaunch(t *testing.T) {
	source := &fakeSource{queue: []sourceResponse{{accounts: testAccountSet()}}}
	proc := &fakeProc{isRunningErr: driven.ErrProcessControlFailed}
	ui := &fakeUI{}
	orch := NewOrchestrator(source, proc, ui, fastConfig())

	accounts, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAccountSet(), accounts)
	assert.Equal(t, 1, proc.launchCount())
}

func TestOrchestrator_CanceledContextStillCloses(t *testing.T) {
	source := &fakeSource{}
	proc := &fakeProc{running: false}
	orch := NewOrchestrator(source, proc, &fakeUI{}, fastConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx)
	require.Error(t, err)
	// Best-effort close survives cancellation via its own grace context.
	assert.True(t, proc.closedOnce())
}

func TestOrchestrator_InitialStatusIdle(t *testing.T) {
	orch := NewOrchestrator(&fakeSource{}, &fakeProc{}, &fakeUI{}, fastConfig())

	status := orch.Status()
	assert.Equal(t, model.PhaseIdle, status.Phase)
	assert.Empty(t, status.Reason)
}
