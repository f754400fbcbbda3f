package tracker

import (
	"context"
	"errors"
	"time"

	"lobbywatch/internal/store"

	"github.com/rs/zerolog/log"
)

// QueueDrainer resolves Pending analysis entries whose game has no archived
// result yet. Errored games become Failed, unknown games NotFound; finished
// games stay Pending with their result archived for the analyzer.
type QueueDrainer struct {
	store     QueueStore
	detector  *Detector
	itemDelay time.Duration
	now       func() time.Time
	sleep     sleepFunc
}

func NewQueueDrainer(st QueueStore, detector *Detector) *QueueDrainer {
	return &QueueDrainer{
		store:     st,
		detector:  detector,
		itemDelay: 2 * time.Second,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Run drains until no candidate is left.
func (q *QueueDrainer) Run(ctx context.Context) error {
	for {
		more, err := q.DrainOne(ctx)
		if err != nil || !more {
			return err
		}
		if err := q.sleep(ctx, q.itemDelay); err != nil {
			return err
		}
	}
}

// DrainOne handles the oldest candidate and reports whether there was one.
func (q *QueueDrainer) DrainOne(ctx context.Context) (bool, error) {
	entry, err := q.store.NextPendingAnalysis(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	status, err := q.detector.Check(ctx, entry.GameID)
	if err != nil {
		return false, err
	}

	// Archive before leaving Pending so a failed write is retried on the
	// next pass.
	if err := Finalize(ctx, q.store, entry.GameID, status, q.now()); err != nil {
		return false, err
	}

	var next store.AnalysisStatus
	switch status.(type) {
	case Errored:
		next = store.AnalysisFailed
	case NotFound:
		next = store.AnalysisNotFound
	}
	if next == "" {
		return true, nil
	}
	err = q.store.SetAnalysisStatus(ctx, entry.ID, next, q.now())
	switch {
	case errors.Is(err, store.ErrInvalidTransition), errors.Is(err, store.ErrNotFound):
		// Cancelled or claimed since it was read.
		log.Warn().Err(err).Str("game_id", entry.GameID).Msg("analysis entry moved on, status left as is")
	case err != nil:
		return false, err
	default:
		analysisTransitions.WithLabelValues(string(next)).Inc()
		log.Info().Str("game_id", entry.GameID).Str("status", string(next)).Msg("analysis entry resolved")
	}
	return true, nil
}
