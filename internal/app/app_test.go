package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockpulse/internal/services/scheduler"
)

func TestStartSchedule_RunNow(t *testing.T) {
	a := newTestApp(t)
	a.ctx, a.cancelCtx = context.WithCancel(context.Background())
	a.SchedulerService = scheduler.NewService(a.Logger)
	t.Cleanup(func() { _ = a.SchedulerService.Stop() })

	// No stocks configured, so the immediate run records an error
	require.NoError(t, a.StartSchedule(context.Background(), true))
	assert.True(t, a.SchedulerService.IsRunning())

	status, err := a.SchedulerService.GetJobStatus(DailyJobName)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Runs)
	assert.Contains(t, status.LastError, "no stocks configured")
	require.NotNil(t, status.NextRun)
}

func TestStartSchedule_CancelStopsJobs(t *testing.T) {
	a := newTestApp(t)
	a.ctx, a.cancelCtx = context.WithCancel(context.Background())
	a.SchedulerService = scheduler.NewService(a.Logger)
	t.Cleanup(func() { _ = a.SchedulerService.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.StartSchedule(ctx, false))
	cancel()

	assert.Eventually(t, func() bool { return a.ctx.Err() != nil }, time.Second, 10*time.Millisecond)
}
