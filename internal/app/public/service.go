package public

import (
	"context"
	"errors"
	"regexp"
	"time"

	"lobbywatch/internal/codec"
	"lobbywatch/internal/store"
)

// Reader is the read-only slice of the store the public surface needs.
type Reader interface {
	ListLobbies(ctx context.Context, f store.LobbyFilter) ([]store.Lobby, error)
	GetLobby(ctx context.Context, gameID string) (*store.Lobby, error)
	GetFinishedGame(ctx context.Context, gameID string) (*store.FinishedGame, error)
	GetAnalysisEntry(ctx context.Context, gameID string) (*store.AnalysisEntry, error)
	ListAnalysisQueue(ctx context.Context, limit int) ([]store.AnalysisEntry, error)
	ListPlayerUpdates(ctx context.Context, gameID string) ([]store.PlayerUpdate, error)
}

var (
	_ Reader = (*store.Store)(nil)
	_ Reader = (*store.Memory)(nil)
)

const analysisQueueMaxRows = 500

var gameIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidGameID reports whether id looks like an external game id.
func ValidGameID(id string) bool {
	return gameIDPattern.MatchString(id)
}

type Service struct {
	store Reader
	now   func() time.Time
}

func NewService(st Reader) *Service {
	return &Service{store: st, now: time.Now}
}

func (s *Service) Lobbies(ctx context.Context, f store.LobbyFilter) (*LobbiesResponse, error) {
	if f.After > 0 && f.Before > 0 && f.After > f.Before {
		return nil, ErrInvalidRequest
	}
	items, err := s.store.ListLobbies(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]LobbyItem, 0, len(items))
	for _, it := range items {
		out = append(out, lobbyItem(it))
	}
	return &LobbiesResponse{Items: out, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *Service) Lobby(ctx context.Context, gameID string) (*LobbyDetail, error) {
	if !ValidGameID(gameID) {
		return nil, ErrInvalidRequest
	}
	l, err := s.store.GetLobby(ctx, gameID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	out := &LobbyDetail{LobbyItem: lobbyItem(*l), Config: l.ConfigJSON}
	entry, err := s.store.GetAnalysisEntry(ctx, gameID)
	switch {
	case err == nil:
		out.Analysis = &AnalysisItem{
			GameID:           entry.GameID,
			Status:           string(entry.Status),
			RequestedUnixSec: entry.RequestedUnixSec,
			StartedUnixSec:   entry.StartedUnixSec,
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}
	return out, nil
}

func (s *Service) Game(ctx context.Context, gameID string) (*GameResponse, error) {
	if !ValidGameID(gameID) {
		return nil, ErrInvalidRequest
	}
	g, err := s.store.GetFinishedGame(ctx, gameID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return &GameResponse{
		GameID:          g.GameID,
		IsOK:            g.IsOK,
		RecordedUnixSec: g.RecordedUnixSec,
		Result:          g.ResultJSON,
	}, nil
}

// AnalysisQueue lists Pending and Running entries, oldest request first.
func (s *Service) AnalysisQueue(ctx context.Context) (*AnalysisQueueResponse, error) {
	entries, err := s.store.ListAnalysisQueue(ctx, analysisQueueMaxRows)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	out := make([]AnalysisQueueItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, AnalysisQueueItem{
			GameID:       e.GameID,
			Status:       string(e.Status),
			QueuedForSec: max(now-e.RequestedUnixSec, 0),
		})
	}
	return &AnalysisQueueResponse{Items: out}, nil
}

// PlayerStats expands the packed per-tick rows of a game.
func (s *Service) PlayerStats(ctx context.Context, gameID string) (*PlayerStatsResponse, error) {
	if !ValidGameID(gameID) {
		return nil, ErrInvalidRequest
	}
	rows, err := s.store.ListPlayerUpdates(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &PlayerStatsResponse{GameID: gameID, Ticks: groupTicks(rows)}, nil
}

// groupTicks expects rows ordered by tick.
func groupTicks(rows []store.PlayerUpdate) []TickStats {
	var ticks []TickStats
	for _, r := range rows {
		if len(ticks) == 0 || ticks[len(ticks)-1].Tick != r.Tick {
			ticks = append(ticks, TickStats{Tick: r.Tick})
		}
		cur := &ticks[len(ticks)-1]
		cur.Players = append(cur.Players, PlayerStats{
			SmallID:    r.SmallID,
			ClientID:   r.ClientID,
			Name:       r.Name,
			TilesOwned: codec.Decode(r.TilesOwned),
			Gold:       codec.Decode(r.Gold),
			Workers:    codec.Decode(r.Workers),
			Troops:     codec.Decode(r.Troops),
		})
	}
	return ticks
}

func lobbyItem(l store.Lobby) LobbyItem {
	return LobbyItem{
		GameID:           l.GameID,
		Teams:            l.Teams,
		MaxPlayers:       l.MaxPlayers,
		MapName:          l.MapName,
		ApproxNumPlayers: l.ApproxNumPlayers,
		FirstSeenUnixSec: l.FirstSeenUnixSec,
		LastSeenUnixSec:  l.LastSeenUnixSec,
		Completed:        l.Completed,
	}
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
