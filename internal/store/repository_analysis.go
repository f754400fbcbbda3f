package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const analysisColumns = `id, game_id, requested_by, requested_unix_sec, started_unix_sec, status::text`

// CreateAnalysisEntryIfAbsent queues gameID as Pending unless a non-cancelled
// entry already exists. It reports whether a row was created.
func (s *Store) CreateAnalysisEntryIfAbsent(ctx context.Context, gameID string, requestedBy *string, at time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
INSERT INTO analysis_queue (id, game_id, requested_by, requested_unix_sec, status)
VALUES ($1, $2, $3, $4, 'Pending')
ON CONFLICT (game_id) WHERE status <> 'Cancelled' DO NOTHING`,
		NewEntryID(at), gameID, textPtrParam(requestedBy), at.Unix(),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RequeueAnalysis puts a Stalled, Failed or NotFound entry for gameID back
// to Pending with a fresh request time. It reports whether an entry was reset.
func (s *Store) RequeueAnalysis(ctx context.Context, gameID string, requestedBy *string, at time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
UPDATE analysis_queue
SET status = 'Pending',
    started_unix_sec = NULL,
    requested_unix_sec = $2,
    requested_by = COALESCE($3, requested_by)
WHERE game_id = $1 AND status IN ('Stalled', 'Failed', 'NotFound')`,
		gameID, at.Unix(), textPtrParam(requestedBy),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// NextPendingAnalysis returns the oldest Pending entry whose game has no
// finished result yet, or ErrNotFound.
func (s *Store) NextPendingAnalysis(ctx context.Context) (*AnalysisEntry, error) {
	row := s.Pool.QueryRow(ctx, `
SELECT aq.id, aq.game_id, aq.requested_by, aq.requested_unix_sec, aq.started_unix_sec, aq.status::text
FROM analysis_queue aq
LEFT JOIN finished_games fg ON fg.game_id = aq.game_id
WHERE aq.status = 'Pending' AND fg.game_id IS NULL
ORDER BY aq.requested_unix_sec ASC, aq.id ASC
LIMIT 1`)
	e, err := scanAnalysisEntry(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return e, nil
}

// SetAnalysisStatus moves entry id to status if the current status allows
// it. Entering Running stamps started_unix_sec with at.
func (s *Store) SetAnalysisStatus(ctx context.Context, id string, status AnalysisStatus, at time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	from := predecessors(status)
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing leads to %s", ErrInvalidTransition, status)
	}
	var started pgtype.Int8
	if status == AnalysisRunning {
		started = int8Param(at.Unix())
	}
	tag, err := s.Pool.Exec(ctx, `
UPDATE analysis_queue
SET status = $2::analysis_status,
    started_unix_sec = COALESCE($3, started_unix_sec)
WHERE id = $1 AND status::text = ANY($4)`,
		id, string(status), started, from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var current string
	err = s.Pool.QueryRow(ctx, `SELECT status::text FROM analysis_queue WHERE id = $1`, id).Scan(&current)
	if err != nil {
		return mapNotFound(err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
}

// CancelAnalysis cancels the live entry for gameID. It returns the number of
// rows changed; zero means nothing was Pending or Running.
func (s *Store) CancelAnalysis(ctx context.Context, gameID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
UPDATE analysis_queue SET status = 'Cancelled'
WHERE game_id = $1 AND status IN ('Pending', 'Running')`, gameID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkStalledAnalyses moves Running entries started before cutoff to Stalled.
func (s *Store) MarkStalledAnalyses(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
UPDATE analysis_queue SET status = 'Stalled'
WHERE status = 'Running' AND started_unix_sec < $1`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetAnalysisEntry returns the newest entry for gameID, cancelled or not.
func (s *Store) GetAnalysisEntry(ctx context.Context, gameID string) (*AnalysisEntry, error) {
	row := s.Pool.QueryRow(ctx, `
SELECT `+analysisColumns+`
FROM analysis_queue WHERE game_id = $1
ORDER BY requested_unix_sec DESC, id DESC
LIMIT 1`, gameID)
	e, err := scanAnalysisEntry(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return e, nil
}

// ListAnalysisQueue returns Pending and Running entries, oldest first.
func (s *Store) ListAnalysisQueue(ctx context.Context, limit int) ([]AnalysisEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
SELECT `+analysisColumns+`
FROM analysis_queue
WHERE status IN ('Pending', 'Running')
ORDER BY requested_unix_sec ASC, id ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AnalysisEntry
	for rows.Next() {
		e, err := scanAnalysisEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanAnalysisEntry(row pgx.Row) (*AnalysisEntry, error) {
	var (
		e           AnalysisEntry
		requestedBy pgtype.Text
		started     pgtype.Int8
		status      string
	)
	if err := row.Scan(&e.ID, &e.GameID, &requestedBy, &e.RequestedUnixSec, &started, &status); err != nil {
		return nil, err
	}
	e.RequestedBy = textPtrVal(requestedBy)
	e.StartedUnixSec = int8PtrVal(started)
	e.Status = AnalysisStatus(status)
	return &e, nil
}
