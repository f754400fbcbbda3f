package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryUpsertLobby(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.UpsertLobby(ctx, Lobby{GameID: "a", MaxPlayers: 50, MapName: "World", ApproxNumPlayers: 3, LastSeenUnixSec: 100}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := m.UpsertLobby(ctx, Lobby{GameID: "a", MaxPlayers: 8, MapName: "Mars", ApproxNumPlayers: 9, LastSeenUnixSec: 90}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	l, err := m.GetLobby(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if l.ApproxNumPlayers != 9 || l.LastSeenUnixSec != 100 || l.FirstSeenUnixSec != 100 {
		t.Fatalf("lobby = %+v", l)
	}
	if l.MaxPlayers != 50 || l.MapName != "World" {
		t.Fatalf("immutable fields changed: %+v", l)
	}
	if _, err := m.GetLobby(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing lobby err = %v, want ErrNotFound", err)
	}
}

func TestMemoryFinalizeGame(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.SeedLobby(Lobby{GameID: "g", MaxPlayers: 2})

	if err := m.FinalizeGame(ctx, FinishedGame{GameID: "g", IsOK: true}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := m.FinalizeGame(ctx, FinishedGame{GameID: "g", IsOK: false}); !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("second finalize err = %v", err)
	}
	g, _ := m.GetFinishedGame(ctx, "g")
	if !g.IsOK {
		t.Fatal("first result overwritten")
	}
	if m.FinishedCount() != 1 {
		t.Fatalf("finished count = %d, want 1", m.FinishedCount())
	}
	l, _ := m.GetLobby(ctx, "g")
	if !l.Completed {
		t.Fatal("lobby not completed")
	}
}

func TestMemoryQuietLobbies(t *testing.T) {
	m := NewMemory()
	m.SeedLobby(Lobby{GameID: "old", LastSeenUnixSec: 10})
	m.SeedLobby(Lobby{GameID: "older", LastSeenUnixSec: 5})
	m.SeedLobby(Lobby{GameID: "done", LastSeenUnixSec: 1, Completed: true})
	m.SeedLobby(Lobby{GameID: "fresh", LastSeenUnixSec: 100})

	ids, err := m.FindQuietIncompleteLobbies(context.Background(), time.Unix(50, 0))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(ids) != 2 || ids[0] != "older" || ids[1] != "old" {
		t.Fatalf("quiet lobbies = %v, want [older old]", ids)
	}
}

func TestMemoryAnalysisQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	if ok, _ := m.CreateAnalysisEntryIfAbsent(ctx, "g", nil, now); !ok {
		t.Fatal("first enqueue not created")
	}
	if ok, _ := m.CreateAnalysisEntryIfAbsent(ctx, "g", nil, now); ok {
		t.Fatal("duplicate enqueue created")
	}
	if n, _ := m.CancelAnalysis(ctx, "g"); n != 1 {
		t.Fatalf("cancel changed %d, want 1", n)
	}
	if ok, _ := m.CreateAnalysisEntryIfAbsent(ctx, "g", nil, now.Add(time.Second)); !ok {
		t.Fatal("enqueue after cancel not created")
	}
	e, err := m.NextPendingAnalysis(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := m.SetAnalysisStatus(ctx, e.ID, AnalysisCompleted, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending->completed err = %v", err)
	}
	if err := m.SetAnalysisStatus(ctx, "nope", AnalysisRunning, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
	if err := m.SetAnalysisStatus(ctx, e.ID, AnalysisRunning, now); err != nil {
		t.Fatalf("set running: %v", err)
	}
	got, _ := m.GetAnalysisEntry(ctx, "g")
	if got.StartedUnixSec == nil || *got.StartedUnixSec != now.Unix() {
		t.Fatalf("started = %v, want %d", got.StartedUnixSec, now.Unix())
	}
	if _, err := m.NextPendingAnalysis(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("next after running err = %v, want ErrNotFound", err)
	}
	queue, _ := m.ListAnalysisQueue(ctx, 0)
	if len(queue) != 1 || queue[0].Status != AnalysisRunning {
		t.Fatalf("queue = %+v", queue)
	}
}

func TestMemoryTrackedPlayers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.TrackPlayer(ctx, "p2")
	_ = m.TrackPlayer(ctx, "p1")
	now := time.Unix(10_000, 0)

	ids, _ := m.ClaimTrackedPlayersDue(ctx, now.Add(-time.Hour), now)
	if len(ids) != 2 || ids[0] != "p1" {
		t.Fatalf("claim = %v", ids)
	}
	ids, _ = m.ClaimTrackedPlayersDue(ctx, now.Add(-time.Hour), now.Add(time.Minute))
	if len(ids) != 0 {
		t.Fatalf("reclaim = %v, want none", ids)
	}
	ids, _ = m.ClaimTrackedPlayersDue(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	if len(ids) != 2 {
		t.Fatalf("claim after recheck period = %v", ids)
	}
}

func TestMemoryRequeueAfterStalled(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	if _, err := m.CreateAnalysisEntryIfAbsent(ctx, "g", nil, now); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	e, _ := m.NextPendingAnalysis(ctx)
	if err := m.SetAnalysisStatus(ctx, e.ID, AnalysisRunning, now); err != nil {
		t.Fatalf("set running: %v", err)
	}
	if ok, _ := m.RequeueAnalysis(ctx, "g", nil, now); ok {
		t.Fatal("running entry must not be requeued")
	}
	if n, _ := m.MarkStalledAnalyses(ctx, now.Add(time.Hour)); n != 1 {
		t.Fatalf("stalled %d, want 1", n)
	}
	user := "u2"
	if ok, err := m.RequeueAnalysis(ctx, "g", &user, now.Add(2*time.Hour)); err != nil || !ok {
		t.Fatalf("requeue = %v, %v, want true", ok, err)
	}
	next, err := m.NextPendingAnalysis(ctx)
	if err != nil {
		t.Fatalf("next after requeue: %v", err)
	}
	if next.ID != e.ID || next.StartedUnixSec != nil || next.RequestedUnixSec != now.Add(2*time.Hour).Unix() {
		t.Fatalf("requeued entry = %+v", next)
	}
	if next.RequestedBy == nil || *next.RequestedBy != user {
		t.Fatalf("requested_by = %v, want %s", next.RequestedBy, user)
	}
}
