package application

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
)

// fakeSource serves a queue of canned LoadAccounts responses, falling back
// to the final entry once the queue is exhausted. An optional gate channel
// blocks every call until released, for reentrancy tests.
type fakeSource struct {
	mu    sync.Mutex
	queue []sourceResponse
	calls int
	gate  chan struct{}
}

type sourceResponse struct {
	accounts []model.Account
	err      error
}

func (f *fakeSource) LoadAccounts(ctx context.Context) ([]model.Account, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if len(f.queue) == 0 {
		return nil, driven.ErrNoAccountsFound
	}
	resp := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return resp.accounts, resp.err
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeProc records process control calls.
type fakeProc struct {
	mu           sync.Mutex
	running      bool
	isRunningErr error
	launchErr    error
	launched     []string
	terminated   []string
	quit         []string
}

func (f *fakeProc) IsRunning(ctx context.Context, pattern string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running, f.isRunningErr
}

func (f *fakeProc) Launch(ctx context.Context, app string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launched = append(f.launched, app)
	return f.launchErr
}

func (f *fakeProc) Terminate(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, pattern)
	return nil
}

func (f *fakeProc) Quit(ctx context.Context, app string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quit = append(f.quit, app)
	return nil
}

func (f *fakeProc) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launched)
}

func (f *fakeProc) closedOnce() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.terminated) == 1 && len(f.quit) == 1
}

// fakeUI is a no-op Automator that records the interaction sequence.
type fakeUI struct {
	mu          sync.Mutex
	focused     []string
	activated   []string
	activateErr error
}

func (f *fakeUI) FocusWindow(ctx context.Context, app string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.focused = append(f.focused, app)
	return nil
}

func (f *fakeUI) ActivateEntry(ctx context.Context, host string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, host)
	return f.activateErr
}

func (f *fakeUI) Pause(ctx context.Context, d time.Duration) error {
	// Fixed delays collapse to nothing in tests.
	return ctx.Err()
}

// fakeCache is an in-memory AccountCache.
type fakeCache struct {
	mu       sync.Mutex
	accounts []model.Account
	loadErr  error
	replaced [][]model.Account
}

func (f *fakeCache) Load(ctx context.Context) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.accounts, nil
}

func (f *fakeCache) Replace(ctx context.Context, accounts []model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = accounts
	f.replaced = append(f.replaced, accounts)
	return nil
}

func (f *fakeCache) replaceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replaced)
}

// fastConfig keeps orchestrator timing negligible in tests.
func fastConfig() OrchestratorConfig {
	return OrchestratorConfig{
		HostApp:           "PlayCover",
		TargetProcess:     "com.duosecurity.DuoMobile",
		SettleDelay:       time.Millisecond,
		PopulationTimeout: 20 * time.Millisecond,
		PopulationPoll:    2 * time.Millisecond,
		MaxAttempts:       2,
		CloseGrace:        time.Second,
	}
}

func testAccountSet() []model.Account {
	return []model.Account{
		{Label: "Work VPN", Issuer: "Example Corp", Secret: []byte("duo-test-secret"), Digits: 6, Period: 30, Algorithm: model.AlgorithmSHA1},
		{Label: "personal", Secret: []byte("alpha-secret"), Digits: 6, Period: 30, Algorithm: model.AlgorithmSHA1},
	}
}
