package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process gateway with the same semantics as Store. It backs
// tests and local runs without Postgres.
type Memory struct {
	mu       sync.Mutex
	lobbies  map[string]*Lobby
	finished map[string]*FinishedGame
	queue    []*AnalysisEntry
	config   map[string]string
	tracked  map[string]*int64
	links    map[[3]string]struct{}
	players  map[string][]PlayerUpdate
	ops      []string
}

func NewMemory() *Memory {
	return &Memory{
		lobbies:  map[string]*Lobby{},
		finished: map[string]*FinishedGame{},
		config:   map[string]string{},
		tracked:  map[string]*int64{},
		links:    map[[3]string]struct{}{},
		players:  map[string][]PlayerUpdate{},
	}
}

// Ops returns the mutations applied so far, as "op:game_id".
func (m *Memory) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *Memory) record(op, id string) {
	m.ops = append(m.ops, op+":"+id)
}

func (m *Memory) UpsertLobby(_ context.Context, l Lobby) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("upsert_lobby", l.GameID)
	if cur, ok := m.lobbies[l.GameID]; ok {
		cur.ApproxNumPlayers = l.ApproxNumPlayers
		if l.LastSeenUnixSec > cur.LastSeenUnixSec {
			cur.LastSeenUnixSec = l.LastSeenUnixSec
		}
		return nil
	}
	row := l
	row.FirstSeenUnixSec = l.LastSeenUnixSec
	row.Completed = false
	if len(row.ConfigJSON) == 0 {
		row.ConfigJSON = json.RawMessage(`{}`)
	}
	m.lobbies[l.GameID] = &row
	return nil
}

func (m *Memory) MarkLobbyFull(_ context.Context, gameID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("mark_full", gameID)
	if cur, ok := m.lobbies[gameID]; ok {
		cur.ApproxNumPlayers = cur.MaxPlayers
	}
	return nil
}

func (m *Memory) FinalizeGame(_ context.Context, g FinishedGame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("finalize", g.GameID)
	if cur, ok := m.lobbies[g.GameID]; ok {
		cur.Completed = true
	}
	if _, ok := m.finished[g.GameID]; ok {
		return ErrAlreadyFinalized
	}
	row := g
	m.finished[g.GameID] = &row
	return nil
}

func (m *Memory) FindQuietIncompleteLobbies(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []*Lobby
	for _, l := range m.lobbies {
		if !l.Completed && l.LastSeenUnixSec < cutoff.Unix() {
			rows = append(rows, l)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LastSeenUnixSec != rows[j].LastSeenUnixSec {
			return rows[i].LastSeenUnixSec < rows[j].LastSeenUnixSec
		}
		return rows[i].GameID < rows[j].GameID
	})
	out := make([]string, 0, len(rows))
	for _, l := range rows {
		out = append(out, l.GameID)
	}
	return out, nil
}

func (m *Memory) GetLobby(_ context.Context, gameID string) (*Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lobbies[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *l
	return &out, nil
}

func (m *Memory) ListLobbies(_ context.Context, f LobbyFilter) ([]Lobby, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var rows []Lobby
	for _, l := range m.lobbies {
		if f.Completed != nil && l.Completed != *f.Completed {
			continue
		}
		if f.MapName != "" && l.MapName != f.MapName {
			continue
		}
		if f.After != 0 && l.FirstSeenUnixSec < f.After {
			continue
		}
		if f.Before != 0 && l.FirstSeenUnixSec >= f.Before {
			continue
		}
		rows = append(rows, *l)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FirstSeenUnixSec != rows[j].FirstSeenUnixSec {
			return rows[i].FirstSeenUnixSec > rows[j].FirstSeenUnixSec
		}
		return rows[i].GameID < rows[j].GameID
	})
	if f.Offset >= len(rows) {
		return []Lobby{}, nil
	}
	rows = rows[f.Offset:]
	if len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, nil
}

func (m *Memory) GetFinishedGame(_ context.Context, gameID string) (*FinishedGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.finished[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *g
	return &out, nil
}

func (m *Memory) CreateAnalysisEntryIfAbsent(_ context.Context, gameID string, requestedBy *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queue {
		if e.GameID == gameID && e.Status != AnalysisCancelled {
			return false, nil
		}
	}
	m.record("enqueue", gameID)
	e := &AnalysisEntry{
		ID:               NewEntryID(at),
		GameID:           gameID,
		RequestedUnixSec: at.Unix(),
		Status:           AnalysisPending,
	}
	if requestedBy != nil {
		v := *requestedBy
		e.RequestedBy = &v
	}
	m.queue = append(m.queue, e)
	return true, nil
}

func (m *Memory) RequeueAnalysis(_ context.Context, gameID string, requestedBy *string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset := false
	for _, e := range m.queue {
		if e.GameID != gameID || !e.Status.Requeueable() {
			continue
		}
		e.Status = AnalysisPending
		e.StartedUnixSec = nil
		e.RequestedUnixSec = at.Unix()
		if requestedBy != nil {
			v := *requestedBy
			e.RequestedBy = &v
		}
		reset = true
	}
	if reset {
		m.record("requeue", gameID)
	}
	return reset, nil
}

func (m *Memory) NextPendingAnalysis(_ context.Context) (*AnalysisEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *AnalysisEntry
	for _, e := range m.queue {
		if e.Status != AnalysisPending {
			continue
		}
		if _, done := m.finished[e.GameID]; done {
			continue
		}
		if best == nil || e.RequestedUnixSec < best.RequestedUnixSec ||
			(e.RequestedUnixSec == best.RequestedUnixSec && e.ID < best.ID) {
			best = e
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	out := *best
	return &out, nil
}

func (m *Memory) SetAnalysisStatus(_ context.Context, id string, status AnalysisStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	for _, e := range m.queue {
		if e.ID != id {
			continue
		}
		if !e.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, status)
		}
		e.Status = status
		if status == AnalysisRunning {
			started := at.Unix()
			e.StartedUnixSec = &started
		}
		m.record("status_"+string(status), e.GameID)
		return nil
	}
	return ErrNotFound
}

func (m *Memory) CancelAnalysis(_ context.Context, gameID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.queue {
		if e.GameID == gameID && (e.Status == AnalysisPending || e.Status == AnalysisRunning) {
			e.Status = AnalysisCancelled
			n++
		}
	}
	return n, nil
}

func (m *Memory) MarkStalledAnalyses(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.queue {
		if e.Status == AnalysisRunning && e.StartedUnixSec != nil && *e.StartedUnixSec < cutoff.Unix() {
			e.Status = AnalysisStalled
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetAnalysisEntry(_ context.Context, gameID string) (*AnalysisEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.queue) - 1; i >= 0; i-- {
		if m.queue[i].GameID == gameID {
			out := *m.queue[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListAnalysisQueue(_ context.Context, limit int) ([]AnalysisEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []AnalysisEntry
	for _, e := range m.queue {
		if e.Status == AnalysisPending || e.Status == AnalysisRunning {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RequestedUnixSec < out[j].RequestedUnixSec
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ReadConfigFlag(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.config[key]
	return v, ok, nil
}

func (m *Memory) SetConfigFlag(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[key] = value
	return nil
}

func (m *Memory) TrackPlayer(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracked[playerID]; !ok {
		m.tracked[playerID] = nil
	}
	return nil
}

func (m *Memory) ClaimTrackedPlayersDue(_ context.Context, cutoff, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id, last := range m.tracked {
		if last != nil && *last >= cutoff.Unix() {
			continue
		}
		stamp := now.Unix()
		m.tracked[id] = &stamp
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) LinkTrackedPlayerGame(_ context.Context, playerID, gameID, clientID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [3]string{playerID, gameID, clientID}
	if _, ok := m.links[key]; ok {
		return false, nil
	}
	m.links[key] = struct{}{}
	return true, nil
}

// PlayerGameLinks returns the recorded (game, client) pairs for playerID.
func (m *Memory) PlayerGameLinks(playerID string) [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][2]string
	for k := range m.links {
		if k[0] == playerID {
			out = append(out, [2]string{k[1], k[2]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// SeedPlayerUpdates stores packed rows for gameID.
func (m *Memory) SeedPlayerUpdates(gameID string, rows []PlayerUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[gameID] = append([]PlayerUpdate(nil), rows...)
}

func (m *Memory) ListPlayerUpdates(_ context.Context, gameID string) ([]PlayerUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]PlayerUpdate(nil), m.players[gameID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tick != out[j].Tick {
			return out[i].Tick < out[j].Tick
		}
		return out[i].SmallID < out[j].SmallID
	})
	return out, nil
}

// SeedLobby stores l as is, including FirstSeenUnixSec and Completed.
func (m *Memory) SeedLobby(l Lobby) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := l
	m.lobbies[l.GameID] = &row
}

func (m *Memory) FinishedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.finished)
}

func (m *Memory) Ping(context.Context) error { return nil }
