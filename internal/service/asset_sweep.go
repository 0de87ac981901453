// Package service contains stuff related to the background processing
// of the application
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type staleLister interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]string, error)
	Remove(ctx context.Context, keys ...string) error
}

// SweepAssets deletes uploads older than maxAge. Uploads normally go away
// when their generate request finishes; this catches the ones whose
// request never arrived.
func SweepAssets(ctx context.Context, s staleLister, maxAge time.Duration) (int, error) {
	keys, err := s.ListStale(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := s.Remove(ctx, keys...); err != nil {
		return 0, err
	}

	return len(keys), nil
}

// AssetSweeper runs SweepAssets every t until ctx is done
func AssetSweeper(ctx context.Context, t, maxAge time.Duration, s staleLister) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Asset sweeper attached", zap.Duration("tick_every", t), zap.Duration("max_age", maxAge))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := SweepAssets(ctx, s, maxAge)
				if err != nil {
					zap.L().Error("Failed to sweep orphaned assets", zap.Error(err))
					continue
				}

				if n > 0 {
					zap.L().Info("Swept orphaned assets", zap.Int("count", n))
				}
			}
		}
	}()
}
