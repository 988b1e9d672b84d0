package handlers

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSweepScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewSweepScheduler("every five minutes", &fakeSweeper{}, zap.NewNop())
	assert.Error(t, err)
}

func TestSweepScheduler_Run(t *testing.T) {
	for _, spec := range []string{"@every 5m", "*/5 * * * *"} {
		sweeper := &fakeSweeper{calls: make(chan context.Context, 1), err: errors.New("store down")}
		scheduler, err := NewSweepScheduler(spec, sweeper, zap.NewNop())
		require.NoError(t, err)

		scheduler.run()
		assert.Len(t, sweeper.calls, 1)
	}
}

func TestSweepScheduler_SkipsAfterShutdown(t *testing.T) {
	sweeper := &fakeSweeper{calls: make(chan context.Context, 1)}
	scheduler, err := NewSweepScheduler("@every 5m", sweeper, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	cancel()
	scheduler.run()
	scheduler.Stop()

	assert.Len(t, sweeper.calls, 0)
}
