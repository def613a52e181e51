package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/syncer"
)

// mockRunner is a mock implementation of the Runner interface.
type mockRunner struct {
	mu          sync.Mutex
	fullFlags   []bool
	SyncAllFunc func(ctx context.Context, full bool, siteFilter []int64) (*syncer.SyncSummary, error)
}

func (m *mockRunner) SyncAll(ctx context.Context, full bool, siteFilter []int64) (*syncer.SyncSummary, error) {
	m.mu.Lock()
	m.fullFlags = append(m.fullFlags, full)
	m.mu.Unlock()
	if m.SyncAllFunc != nil {
		return m.SyncAllFunc(ctx, full, siteFilter)
	}
	return &syncer.SyncSummary{RunID: "run"}, nil
}

func (m *mockRunner) calls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.fullFlags...)
}

func TestService_RunSyncsImmediately(t *testing.T) {
	runner := &mockRunner{}
	svc := NewService(config.SchedulerConfig{Enabled: true, Schedule: "@every 1h", FullOnStart: true}, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return len(runner.calls()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, []bool{true}, runner.calls())
}

func TestService_Disabled(t *testing.T) {
	runner := &mockRunner{}
	svc := NewService(config.SchedulerConfig{Enabled: false}, runner)

	assert.NoError(t, svc.Run(context.Background()))
	assert.Empty(t, runner.calls())
}

func TestService_InvalidSchedule(t *testing.T) {
	runner := &mockRunner{}
	svc := NewService(config.SchedulerConfig{Enabled: true, Schedule: "every now and then"}, runner)

	err := svc.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.Empty(t, runner.calls())
}

func TestService_SyncOnce(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "in progress is skipped", err: syncer.ErrSyncInProgress},
		{name: "failure is logged", err: errors.New("api down")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &mockRunner{
				SyncAllFunc: func(context.Context, bool, []int64) (*syncer.SyncSummary, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return &syncer.SyncSummary{RunID: "r", TotalSites: 1, SuccessfulSites: 1}, nil
				},
			}
			svc := NewService(config.SchedulerConfig{Enabled: true}, runner)

			svc.SyncOnce(context.Background(), false)
			assert.Equal(t, []bool{false}, runner.calls())
		})
	}

	t.Run("cancelled context does nothing", func(t *testing.T) {
		runner := &mockRunner{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		NewService(config.SchedulerConfig{Enabled: true}, runner).SyncOnce(ctx, false)
		assert.Empty(t, runner.calls())
	})
}
