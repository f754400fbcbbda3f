package analysis

import (
	"context"
	"time"

	"lobbywatch/internal/app/public"
	"lobbywatch/internal/store"

	"github.com/rs/zerolog/log"
)

type Queue interface {
	CreateAnalysisEntryIfAbsent(ctx context.Context, gameID string, requestedBy *string, at time.Time) (bool, error)
	RequeueAnalysis(ctx context.Context, gameID string, requestedBy *string, at time.Time) (bool, error)
	CancelAnalysis(ctx context.Context, gameID string) (int64, error)
	GetAnalysisEntry(ctx context.Context, gameID string) (*store.AnalysisEntry, error)
}

var (
	_ Queue = (*store.Store)(nil)
	_ Queue = (*store.Memory)(nil)
)

type Service struct {
	queue Queue
	now   func() time.Time
}

func NewService(q Queue) *Service {
	return &Service{queue: q, now: time.Now}
}

// EnqueueResult reports the entry that now tracks the game.
type EnqueueResult struct {
	GameID   string `json:"game_id"`
	Created  bool   `json:"created"`
	Requeued bool   `json:"requeued"`
	Status   string `json:"status"`
}

// Enqueue requests an analysis for gameID. Repeated requests while an
// entry is Pending, Running or completed are no-ops; a cancelled entry is
// replaced by a new one and a Stalled, Failed or NotFound one goes back to
// Pending.
func (s *Service) Enqueue(ctx context.Context, gameID string, requestedBy *string) (*EnqueueResult, error) {
	if !public.ValidGameID(gameID) {
		return nil, ErrInvalidGameID
	}
	at := s.now()
	created, err := s.queue.CreateAnalysisEntryIfAbsent(ctx, gameID, requestedBy, at)
	if err != nil {
		return nil, err
	}
	requeued := false
	if !created {
		if requeued, err = s.queue.RequeueAnalysis(ctx, gameID, requestedBy, at); err != nil {
			return nil, err
		}
	}
	entry, err := s.queue.GetAnalysisEntry(ctx, gameID)
	if err != nil {
		return nil, err
	}
	switch {
	case created:
		log.Info().Str("game_id", gameID).Msg("analysis requested")
	case requeued:
		log.Info().Str("game_id", gameID).Msg("analysis requeued")
	}
	return &EnqueueResult{GameID: gameID, Created: created, Requeued: requeued, Status: string(entry.Status)}, nil
}

// Cancel moves the Pending or Running entry for gameID to Cancelled.
func (s *Service) Cancel(ctx context.Context, gameID string) error {
	if !public.ValidGameID(gameID) {
		return ErrInvalidGameID
	}
	n, err := s.queue.CancelAnalysis(ctx, gameID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotCancellable
	}
	log.Info().Str("game_id", gameID).Msg("analysis cancelled")
	return nil
}
