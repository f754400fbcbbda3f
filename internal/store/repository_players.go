package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ClaimTrackedPlayersDue stamps every tracked player last checked before
// cutoff (or never) with now and returns their ids.
func (s *Store) ClaimTrackedPlayersDue(ctx context.Context, cutoff, now time.Time) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
UPDATE tracked_players SET last_checked_unix_sec = $2
WHERE is_tracked AND (last_checked_unix_sec IS NULL OR last_checked_unix_sec < $1)
RETURNING player_id`, cutoff.Unix(), now.Unix())
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) TrackPlayer(ctx context.Context, playerID string) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO tracked_players (player_id, is_tracked) VALUES ($1, TRUE)
ON CONFLICT (player_id) DO UPDATE SET is_tracked = TRUE`, playerID)
	return err
}

// LinkTrackedPlayerGame records that playerID joined gameID as clientID. It
// reports whether the link is new.
func (s *Store) LinkTrackedPlayerGame(ctx context.Context, playerID, gameID, clientID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
INSERT INTO tracked_player_games (player_id, game_id, client_id) VALUES ($1, $2, $3)
ON CONFLICT (player_id, game_id, client_id) DO NOTHING`, playerID, gameID, clientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListPlayerUpdates returns the packed per-tick counters of a game, ordered
// by tick then player.
func (s *Store) ListPlayerUpdates(ctx context.Context, gameID string) ([]PlayerUpdate, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT u.tick, u.small_id, p.client_id, p.name, u.tiles_owned, u.gold, u.workers, u.troops
FROM packed_player_updates u
JOIN game_players p ON p.game_id = u.game_id AND p.small_id = u.small_id
WHERE u.game_id = $1
ORDER BY u.tick ASC, u.small_id ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PlayerUpdate
	for rows.Next() {
		var (
			u        PlayerUpdate
			clientID pgtype.Text
		)
		if err := rows.Scan(&u.Tick, &u.SmallID, &clientID, &u.Name,
			&u.TilesOwned, &u.Gold, &u.Workers, &u.Troops); err != nil {
			return nil, err
		}
		u.ClientID = textPtrVal(clientID)
		out = append(out, u)
	}
	return out, rows.Err()
}
