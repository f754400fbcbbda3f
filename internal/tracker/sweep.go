package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const autoAnalyzeKey = "auto_analyze_games"

// LobbySweep finalizes lobbies that stopped receiving updates and, when the
// auto_analyze_games flag is "true", queues them for analysis.
type LobbySweep struct {
	store          SweepStore
	detector       *Detector
	quietThreshold time.Duration
	itemDelay      time.Duration
	now            func() time.Time
	sleep          sleepFunc
}

func NewLobbySweep(st SweepStore, detector *Detector, quietThreshold time.Duration) *LobbySweep {
	if quietThreshold <= 0 {
		quietThreshold = 15 * time.Minute
	}
	return &LobbySweep{
		store:          st,
		detector:       detector,
		quietThreshold: quietThreshold,
		itemDelay:      time.Second,
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// Run checks every quiet lobby once, one at a time.
func (s *LobbySweep) Run(ctx context.Context) error {
	ids, err := s.store.FindQuietIncompleteLobbies(ctx, s.now().Add(-s.quietThreshold))
	if err != nil {
		return err
	}
	log.Info().Int("count", len(ids)).Msg("checking quiet lobbies")
	for i, gameID := range ids {
		if err := s.sweepOne(ctx, gameID); err != nil {
			return err
		}
		if i < len(ids)-1 {
			if err := s.sleep(ctx, s.itemDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *LobbySweep) sweepOne(ctx context.Context, gameID string) error {
	status, err := s.detector.Check(ctx, gameID)
	if err != nil {
		return err
	}
	if err := Finalize(ctx, s.store, gameID, status, s.now()); err != nil {
		return err
	}
	if _, missing := status.(NotFound); missing {
		return nil
	}
	on, err := s.autoAnalyze(ctx)
	if err != nil || !on {
		return err
	}
	created, err := s.store.CreateAnalysisEntryIfAbsent(ctx, gameID, nil, s.now())
	if err != nil {
		return fmt.Errorf("queue analysis %s: %w", gameID, err)
	}
	if created {
		log.Info().Str("game_id", gameID).Msg("game added to analysis queue")
	} else {
		log.Debug().Str("game_id", gameID).Msg("game already in analysis queue")
	}
	return nil
}

func (s *LobbySweep) autoAnalyze(ctx context.Context) (bool, error) {
	v, ok, err := s.store.ReadConfigFlag(ctx, autoAnalyzeKey)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", autoAnalyzeKey, err)
	}
	return ok && v == "true", nil
}
