package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lobbywatch/internal/store"

	"github.com/rs/zerolog/log"
)

// Finalize archives a classified game: the lobby is marked completed and the
// result recorded in one transaction. NotFound writes nothing. A game that
// another task already finalized counts as success.
func Finalize(ctx context.Context, st GameFinalizer, gameID string, status CompletionStatus, now time.Time) error {
	row := store.FinishedGame{GameID: gameID, RecordedUnixSec: now.Unix()}
	switch s := status.(type) {
	case NotFound:
		log.Info().Str("game_id", gameID).Msg("game not found, skipping")
		gamesFinalized.WithLabelValues("not_found").Inc()
		return nil
	case Finished:
		row.ResultJSON, row.IsOK = s.Payload, true
	case Errored:
		row.ResultJSON, row.IsOK = s.Payload, false
	default:
		return fmt.Errorf("finalize %s: unexpected status %T", gameID, status)
	}

	err := st.FinalizeGame(ctx, row)
	switch {
	case errors.Is(err, store.ErrAlreadyFinalized):
		log.Debug().Str("game_id", gameID).Msg("game already finalized")
		gamesFinalized.WithLabelValues("duplicate").Inc()
		return nil
	case err != nil:
		return fmt.Errorf("finalize %s: %w", gameID, err)
	}
	outcome := "ok"
	if !row.IsOK {
		outcome = "error_payload"
	}
	gamesFinalized.WithLabelValues(outcome).Inc()
	log.Info().Str("game_id", gameID).Bool("is_ok", row.IsOK).Msg("game finalized")
	return nil
}
