package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	mu      sync.Mutex
	cutoffs []time.Time
	n       int64
	err     error
}

func (f *fakeSweeper) DeleteSpent(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.n, f.err
}

func (f *fakeSweeper) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestInviteCleanup_SweepUsesRetentionCutoff(t *testing.T) {
	fake := &fakeSweeper{n: 3}
	w := NewInviteCleanup(fake, zap.NewNop(), time.Hour, 48*time.Hour)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.Len(t, fake.cutoffs, 1)
	assert.Equal(t, now.Add(-48*time.Hour), fake.cutoffs[0])
}

func TestInviteCleanup_SweepError(t *testing.T) {
	fake := &fakeSweeper{err: errors.New("boom")}
	w := NewInviteCleanup(fake, zap.NewNop(), time.Hour, time.Hour)

	n, err := w.Sweep(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestInviteCleanup_StartStop(t *testing.T) {
	fake := &fakeSweeper{}
	w := NewInviteCleanup(fake, zap.NewNop(), 10*time.Millisecond, time.Hour)

	w.Start()
	require.Eventually(t, func() bool { return fake.calls() >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()
	w.Stop()

	after := fake.calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, fake.calls(), "no sweeps after Stop")
}
