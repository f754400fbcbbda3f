package store

import (
	"context"
	"testing"

	"lobbywatch/internal/testutil"
)

func openStore(t *testing.T) (*Store, context.Context, func()) {
	t.Helper()
	st, err := New(testutil.MigratedDSN(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st, context.Background(), st.Close
}

func mustUpsertLobby(t *testing.T, st *Store, ctx context.Context, gameID string, maxPlayers int, lastSeen int64) {
	t.Helper()
	err := st.UpsertLobby(ctx, Lobby{
		GameID:           gameID,
		Teams:            FFA(),
		MaxPlayers:       maxPlayers,
		MapName:          "World",
		ApproxNumPlayers: 1,
		LastSeenUnixSec:  lastSeen,
	})
	if err != nil {
		t.Fatalf("upsert lobby %s: %v", gameID, err)
	}
}
