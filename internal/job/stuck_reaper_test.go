package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFailer struct {
	cutoff int64
	reason string
	n      int64
	err    error
	calls  int
}

func (f *fakeFailer) FailStuck(ctx context.Context, cutoff int64, reason string) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.reason = reason
	return f.n, f.err
}

func TestStuckProcessingReaperRun(t *testing.T) {
	failer := &fakeFailer{n: 2}
	reaper := NewStuckProcessingReaper(failer, 30*time.Minute)

	before := time.Now().Add(-30 * time.Minute).UnixMilli()
	require.NoError(t, reaper.Run(context.Background()))
	after := time.Now().Add(-30 * time.Minute).UnixMilli()

	require.Equal(t, 1, failer.calls)
	require.GreaterOrEqual(t, failer.cutoff, before)
	require.LessOrEqual(t, failer.cutoff, after)
	require.Equal(t, "processing lease expired", failer.reason)
}

func TestStuckProcessingReaperDisabled(t *testing.T) {
	failer := &fakeFailer{}
	reaper := NewStuckProcessingReaper(failer, 0)
	require.NoError(t, reaper.Run(context.Background()))
	require.Zero(t, failer.calls)
}
