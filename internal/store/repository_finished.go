package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// FinalizeGame marks the lobby completed and records its result in one
// transaction. When a result already exists the lobby update still commits
// and ErrAlreadyFinalized is returned; the stored result is left untouched.
func (s *Store) FinalizeGame(ctx context.Context, g FinishedGame) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE lobbies SET completed = TRUE WHERE game_id = $1`, g.GameID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
INSERT INTO finished_games (game_id, result_json, is_ok, recorded_unix_sec)
VALUES ($1, $2, $3, $4)
ON CONFLICT (game_id) DO NOTHING`,
		g.GameID, []byte(g.ResultJSON), g.IsOK, g.RecordedUnixSec,
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyFinalized
	}
	return nil
}

func (s *Store) GetFinishedGame(ctx context.Context, gameID string) (*FinishedGame, error) {
	var (
		g   FinishedGame
		raw []byte
	)
	err := s.Pool.QueryRow(ctx, `
SELECT game_id, result_json, is_ok, recorded_unix_sec
FROM finished_games WHERE game_id = $1`, gameID).
		Scan(&g.GameID, &raw, &g.IsOK, &g.RecordedUnixSec)
	if err != nil {
		return nil, mapNotFound(err)
	}
	g.ResultJSON = json.RawMessage(raw)
	return &g, nil
}
