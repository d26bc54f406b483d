package main

import (
	"context"
	"time"

	"gateway/internal/infra"
	"gateway/internal/storage"
)

type historyPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type objectStore interface {
	Delete(ctx context.Context, key string) error
	OlderThan(ctx context.Context, age time.Duration) ([]storage.Object, error)
}

// janitor removes history rows and persisted outputs past the retention window.
type janitor struct {
	history   historyPruner
	objects   objectStore
	retention time.Duration
	logger    infra.Logger
	now       func() time.Time
}

type sweepStats struct {
	rows    int
	objects int
	bytes   int64
}

func (j *janitor) run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	j.logger.Info().Dur("interval", interval).Dur("retention", j.retention).Msg("janitor: started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := j.runOnce(ctx); err != nil {
			j.logger.Error().Err(err).Msg("janitor: sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOnce prunes history first so that objects referenced by expired rows go
// even when their files are newer than the retention window.
func (j *janitor) runOnce(ctx context.Context) (sweepStats, error) {
	var stats sweepStats
	if j.retention <= 0 {
		return stats, nil
	}

	if j.history != nil {
		keys, err := j.history.PruneOlderThan(ctx, j.now().Add(-j.retention))
		if err != nil {
			return stats, err
		}
		stats.rows = len(keys)
		if j.objects != nil {
			for _, key := range keys {
				if err := j.objects.Delete(ctx, key); err != nil {
					j.logger.Warn().Err(err).Str("key", key).Msg("janitor: delete referenced output failed")
					continue
				}
				stats.objects++
			}
		}
	}

	if j.objects != nil {
		expired, err := j.objects.OlderThan(ctx, j.retention)
		if err != nil {
			return stats, err
		}
		for _, obj := range expired {
			if err := j.objects.Delete(ctx, obj.Key); err != nil {
				j.logger.Warn().Err(err).Str("key", obj.Key).Msg("janitor: delete expired output failed")
				continue
			}
			stats.objects++
			stats.bytes += obj.Size
		}
	}

	j.logger.Info().
		Int("history_rows", stats.rows).
		Int("objects", stats.objects).
		Int64("bytes", stats.bytes).
		Msg("janitor: sweep complete")
	return stats, nil
}
