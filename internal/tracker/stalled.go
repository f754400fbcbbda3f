package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StalledSweep marks Running analyses that outlived the threshold as Stalled,
// releasing entries left behind by a crashed analyzer.
type StalledSweep struct {
	store     StallStore
	threshold time.Duration
	now       func() time.Time
}

func NewStalledSweep(st StallStore, threshold time.Duration) *StalledSweep {
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}
	return &StalledSweep{store: st, threshold: threshold, now: time.Now}
}

func (s *StalledSweep) Run(ctx context.Context) error {
	n, err := s.store.MarkStalledAnalyses(ctx, s.now().Add(-s.threshold))
	if err != nil {
		return err
	}
	if n > 0 {
		analysisTransitions.WithLabelValues("Stalled").Add(float64(n))
		log.Warn().Int64("count", n).Msg("marked stalled analyses")
	}
	return nil
}
