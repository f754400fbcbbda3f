package tracker

import (
	"context"
	"time"

	"lobbywatch/internal/store"
)

type LobbyWriter interface {
	UpsertLobby(ctx context.Context, l store.Lobby) error
	MarkLobbyFull(ctx context.Context, gameID string) error
}

type GameFinalizer interface {
	FinalizeGame(ctx context.Context, g store.FinishedGame) error
}

type AnalysisEnqueuer interface {
	CreateAnalysisEntryIfAbsent(ctx context.Context, gameID string, requestedBy *string, at time.Time) (bool, error)
}

type ConfigReader interface {
	ReadConfigFlag(ctx context.Context, key string) (string, bool, error)
}

type SweepStore interface {
	GameFinalizer
	AnalysisEnqueuer
	ConfigReader
	FindQuietIncompleteLobbies(ctx context.Context, cutoff time.Time) ([]string, error)
}

type QueueStore interface {
	GameFinalizer
	NextPendingAnalysis(ctx context.Context) (*store.AnalysisEntry, error)
	SetAnalysisStatus(ctx context.Context, id string, status store.AnalysisStatus, at time.Time) error
}

type StallStore interface {
	MarkStalledAnalyses(ctx context.Context, cutoff time.Time) (int64, error)
}

type PlayerStore interface {
	ClaimTrackedPlayersDue(ctx context.Context, cutoff, now time.Time) ([]string, error)
	LinkTrackedPlayerGame(ctx context.Context, playerID, gameID, clientID string) (bool, error)
}

// Gateway is everything the task set needs from persistence. Both
// *store.Store and *store.Memory satisfy it.
type Gateway interface {
	LobbyWriter
	SweepStore
	QueueStore
	StallStore
	PlayerStore
}

var (
	_ Gateway = (*store.Store)(nil)
	_ Gateway = (*store.Memory)(nil)
)
