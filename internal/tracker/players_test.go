package tracker

import (
	"context"
	"testing"
	"time"

	"lobbywatch/internal/gamesource"
	"lobbywatch/internal/store"
)

func TestPlayerCrawlLinksGamesAndSkipsFailures(t *testing.T) {
	mem := store.NewMemory()
	src := gamesource.NewFake()
	ctx := context.Background()
	_ = mem.TrackPlayer(ctx, "alice")
	_ = mem.TrackPlayer(ctx, "bob")
	_ = mem.TrackPlayer(ctx, "carol")
	src.SetPlayerGames("alice", []gamesource.PlayerGame{{GameID: "g1", ClientID: "c1"}, {GameID: "g2", ClientID: "c9"}, {GameID: "", ClientID: "x"}})
	src.SetPlayerGames("carol", []gamesource.PlayerGame{{GameID: "g1", ClientID: "c3"}})

	c := NewPlayerCrawl(src, mem, 30*time.Minute)
	rec := &sleepRecorder{}
	c.now = fixedClock(50_000)
	c.sleep = rec.sleep

	if err := c.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := mem.PlayerGameLinks("alice"); len(got) != 2 {
		t.Fatalf("alice links = %v, want 2", got)
	}
	if got := mem.PlayerGameLinks("carol"); len(got) != 1 || got[0] != [2]string{"g1", "c3"} {
		t.Fatalf("carol links = %v", got)
	}
	if waits := rec.recorded(); len(waits) != 2 {
		t.Fatalf("waits = %v, want one between each of 3 players", waits)
	}

	// Everyone was claimed, so an immediate rerun does nothing.
	if err := c.Run(ctx); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if waits := rec.recorded(); len(waits) != 2 {
		t.Fatalf("rerun slept: %v", waits)
	}
}
