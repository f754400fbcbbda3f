package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"lobbywatch/internal/store"

	"github.com/goccy/go-json"
)

type failingFinalizer struct{ err error }

func (f failingFinalizer) FinalizeGame(context.Context, store.FinishedGame) error { return f.err }

func TestFinalizeTwiceKeepsOneRow(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedLobby(store.Lobby{GameID: "g1", MaxPlayers: 10})
	ctx := context.Background()
	status := Finished{Payload: json.RawMessage(finishedPayload)}

	for i := 0; i < 2; i++ {
		if err := Finalize(ctx, mem, "g1", status, time.Unix(100, 0)); err != nil {
			t.Fatalf("finalize %d: %v", i, err)
		}
	}
	if mem.FinishedCount() != 1 {
		t.Fatalf("finished rows = %d, want 1", mem.FinishedCount())
	}
	l, _ := mem.GetLobby(ctx, "g1")
	if !l.Completed {
		t.Fatal("lobby not completed")
	}
	g, _ := mem.GetFinishedGame(ctx, "g1")
	if !g.IsOK || g.RecordedUnixSec != 100 {
		t.Fatalf("finished game = %+v", g)
	}
}

func TestFinalizeErroredStoresNotOK(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	if err := Finalize(ctx, mem, "g2", Errored{Payload: json.RawMessage(`{"error":"boom"}`)}, time.Unix(1, 0)); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	g, err := mem.GetFinishedGame(ctx, "g2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.IsOK || string(g.ResultJSON) != `{"error":"boom"}` {
		t.Fatalf("finished game = %+v", g)
	}
}

func TestFinalizeNotFoundWritesNothing(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedLobby(store.Lobby{GameID: "g3"})
	if err := Finalize(context.Background(), mem, "g3", NotFound{}, time.Unix(1, 0)); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if mem.FinishedCount() != 0 {
		t.Fatal("NotFound created a finished game")
	}
	l, _ := mem.GetLobby(context.Background(), "g3")
	if l.Completed {
		t.Fatal("NotFound completed the lobby")
	}
}

func TestFinalizePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	err := Finalize(context.Background(), failingFinalizer{err: boom}, "g", Finished{}, time.Now())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want db error", err)
	}
}
