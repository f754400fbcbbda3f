package tracker

import (
	"context"
	"errors"
	"fmt"

	"lobbywatch/internal/gamesource"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

var ErrUnknownGameState = errors.New("unknown game state")

const notFoundMarker = "Not found"

// CompletionStatus is one of Finished, Errored or NotFound.
type CompletionStatus interface {
	completionStatus()
}

// Finished carries a complete result document.
type Finished struct {
	Payload json.RawMessage
}

// Errored carries the error document the source returned for the game.
type Errored struct {
	Payload json.RawMessage
}

// NotFound means the source has no record of the game.
type NotFound struct{}

func (Finished) completionStatus() {}
func (Errored) completionStatus() {}
func (NotFound) completionStatus() {}

// Detector classifies a game by fetching its result once.
type Detector struct {
	Source gamesource.Source
}

func (d *Detector) Check(ctx context.Context, gameID string) (CompletionStatus, error) {
	payload, err := d.Source.FetchGameResult(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetch game %s: %w", gameID, err)
	}
	return Classify(gameID, payload)
}

// Classify inspects the markers of a result document: an "error" field
// ("Not found" or anything else) or a "gitCommit" build marker. Any other
// shape is ErrUnknownGameState.
func Classify(gameID string, payload json.RawMessage) (CompletionStatus, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: game %s: payload is not an object", ErrUnknownGameState, gameID)
	}
	if raw, ok := fields["error"]; ok {
		var msg string
		if json.Unmarshal(raw, &msg) == nil && msg == notFoundMarker {
			return NotFound{}, nil
		}
		return Errored{Payload: payload}, nil
	}
	if _, ok := fields["gitCommit"]; ok {
		logFinished(gameID, payload)
		return Finished{Payload: payload}, nil
	}
	log.Error().Str("game_id", gameID).Msg("game in unknown state")
	return nil, fmt.Errorf("%w: game %s", ErrUnknownGameState, gameID)
}

type resultSummary struct {
	Info struct {
		Winner   []json.RawMessage `json:"winner"`
		Duration int64             `json:"duration"`
		NumTurns int64             `json:"num_turns"`
		Players  []struct {
			ClientID string `json:"clientID"`
			Username string `json:"username"`
		} `json:"players"`
	} `json:"info"`
}

// winner returns the winning client id and its username when present.
func (r resultSummary) winner() (string, string) {
	if len(r.Info.Winner) < 2 {
		return "", ""
	}
	var id string
	if json.Unmarshal(r.Info.Winner[1], &id) != nil || id == "" {
		return "", ""
	}
	for _, p := range r.Info.Players {
		if p.ClientID == id {
			return id, p.Username
		}
	}
	return id, ""
}

func logFinished(gameID string, payload json.RawMessage) {
	var summary resultSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		log.Info().Str("game_id", gameID).Msg("game finished")
		return
	}
	winnerID, winnerName := summary.winner()
	log.Info().
		Str("game_id", gameID).
		Str("winner_id", winnerID).
		Str("winner", winnerName).
		Int64("duration_sec", summary.Info.Duration).
		Int64("num_turns", summary.Info.NumTurns).
		Msg("game finished")
}
