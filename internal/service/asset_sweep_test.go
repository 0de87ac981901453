package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu      sync.Mutex
	stale   []string
	listErr error
	rmErr   error

	cutoff  time.Time
	removed [][]string
}

func (f *fakeBucket) ListStale(_ context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cutoff = cutoff
	return f.stale, f.listErr
}

func (f *fakeBucket) Remove(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, keys)
	return f.rmErr
}

func (f *fakeBucket) removals() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.removed)
}

func TestSweepAssets(t *testing.T) {
	b := &fakeBucket{stale: []string{"public/a.png", "public/b.png"}}

	n, err := SweepAssets(context.Background(), b, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][]string{{"public/a.png", "public/b.png"}}, b.removed)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), b.cutoff, time.Minute)
}

func TestSweepAssetsNothingStale(t *testing.T) {
	b := &fakeBucket{}

	n, err := SweepAssets(context.Background(), b, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, b.removed)
}

func TestSweepAssetsErrors(t *testing.T) {
	_, err := SweepAssets(context.Background(), &fakeBucket{listErr: errors.New("denied")}, time.Hour)
	assert.EqualError(t, err, "denied")

	_, err = SweepAssets(context.Background(), &fakeBucket{stale: []string{"public/a"}, rmErr: errors.New("gone")}, time.Hour)
	assert.EqualError(t, err, "gone")
}

func TestAssetSweeperStopsWithContext(t *testing.T) {
	b := &fakeBucket{stale: []string{"public/a.png"}}
	ctx, cancel := context.WithCancel(context.Background())

	AssetSweeper(ctx, 5*time.Millisecond, time.Hour, b)

	require.Eventually(t, func() bool { return b.removals() > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	n := b.removals()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, b.removals())
}
