package leaderboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ResyncWorker periodically copies the Postgres ranking into Redis so the
// sorted set survives flushes and restarts.
type ResyncWorker struct {
	svc      *Service
	source   RatingSource
	logger   zerolog.Logger
	interval time.Duration
	topN     int
}

func NewResyncWorker(svc *Service, source RatingSource, interval time.Duration, topN int, logger zerolog.Logger) *ResyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topN <= 0 {
		topN = 100
	}
	return &ResyncWorker{
		svc:      svc,
		source:   source,
		logger:   logger.With().Str("component", "leaderboard_resync_worker").Logger(),
		interval: interval,
		topN:     topN,
	}
}

// Run blocks until context cancellation.
func (w *ResyncWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.source == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ResyncWorker) tick(ctx context.Context) {
	rows, err := w.source.TopRatings(ctx, w.topN)
	if err != nil {
		w.logger.Warn().Err(err).Msg("resync read failed")
		return
	}
	if err := w.svc.Warm(ctx, rows); err != nil {
		w.logger.Warn().Err(err).Msg("resync write failed")
		return
	}
	w.logger.Debug().Int("entries", len(rows)).Msg("leaderboard resynced")
}
