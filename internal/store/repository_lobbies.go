package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
)

// UpsertLobby inserts l on first sight. Later observations only move the
// player count and last-seen time; last-seen never goes backwards.
func (s *Store) UpsertLobby(ctx context.Context, l Lobby) error {
	cfg := l.ConfigJSON
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO lobbies (
  game_id, teams, max_players, map_name, approx_num_players,
  first_seen_unix_sec, last_seen_unix_sec, lobby_config_json
) VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
ON CONFLICT (game_id) DO UPDATE SET
  approx_num_players = EXCLUDED.approx_num_players,
  last_seen_unix_sec = GREATEST(lobbies.last_seen_unix_sec, EXCLUDED.last_seen_unix_sec)`,
		l.GameID, l.Teams.Int(), l.MaxPlayers, l.MapName, l.ApproxNumPlayers,
		l.LastSeenUnixSec, []byte(cfg),
	)
	return err
}

// MarkLobbyFull forces the recorded player count to capacity. Missing ids are
// ignored: the lobby may never have been persisted.
func (s *Store) MarkLobbyFull(ctx context.Context, gameID string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE lobbies SET approx_num_players = max_players WHERE game_id = $1`, gameID)
	return err
}

func (s *Store) FindQuietIncompleteLobbies(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT game_id FROM lobbies
WHERE completed = FALSE AND last_seen_unix_sec < $1
ORDER BY last_seen_unix_sec ASC`, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) GetLobby(ctx context.Context, gameID string) (*Lobby, error) {
	row := s.Pool.QueryRow(ctx, `
SELECT game_id, teams, max_players, map_name, approx_num_players,
       first_seen_unix_sec, last_seen_unix_sec, completed, lobby_config_json
FROM lobbies WHERE game_id = $1`, gameID)
	l, err := scanLobby(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return l, nil
}

func (s *Store) ListLobbies(ctx context.Context, f LobbyFilter) ([]Lobby, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
SELECT game_id, teams, max_players, map_name, approx_num_players,
       first_seen_unix_sec, last_seen_unix_sec, completed, lobby_config_json
FROM lobbies
WHERE ($1::boolean IS NULL OR completed = $1)
  AND ($2 = '' OR map_name = $2)
  AND ($3::bigint IS NULL OR first_seen_unix_sec >= $3)
  AND ($4::bigint IS NULL OR first_seen_unix_sec < $4)
ORDER BY first_seen_unix_sec DESC
LIMIT $5 OFFSET $6`,
		boolPtrParam(f.Completed), f.MapName, unixBoundParam(f.After), unixBoundParam(f.Before),
		f.Limit, f.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Lobby, 0, f.Limit)
	for rows.Next() {
		l, err := scanLobby(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLobby(row pgx.Row) (*Lobby, error) {
	var (
		l     Lobby
		teams int32
		cfg   []byte
	)
	if err := row.Scan(
		&l.GameID, &teams, &l.MaxPlayers, &l.MapName, &l.ApproxNumPlayers,
		&l.FirstSeenUnixSec, &l.LastSeenUnixSec, &l.Completed, &cfg,
	); err != nil {
		return nil, err
	}
	l.Teams = TeamsFromInt(teams)
	l.ConfigJSON = json.RawMessage(cfg)
	return &l, nil
}
