package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lobbywatch/internal/store"
	"lobbywatch/internal/testutil"
)

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(store.NewMemory())

	w := doRequest(t, router, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d body=%s", w.Code, w.Body.String())
	}
	w = doRequest(t, router, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tracker_http_requests_total") {
		t.Fatal("metrics output should include the request counter")
	}
}

func TestLobbyEndpoints(t *testing.T) {
	mem := store.NewMemory()
	mem.SeedLobby(store.Lobby{GameID: "g1", MapName: "World", FirstSeenUnixSec: 100, Teams: store.Teams(2)})
	mem.SeedLobby(store.Lobby{GameID: "g2", MapName: "Europe", FirstSeenUnixSec: 200, Completed: true})
	router := NewRouter(mem)

	w := doRequest(t, router, http.MethodGet, "/api/v1/lobbies?completed=false")
	if w.Code != http.StatusOK {
		t.Fatalf("lobbies status=%d body=%s", w.Code, w.Body.String())
	}
	var list struct {
		Items []struct {
			GameID string `json:"game_id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode lobbies: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].GameID != "g1" {
		t.Fatalf("items = %+v, want [g1]", list.Items)
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "bad completed", path: "/api/v1/lobbies?completed=maybe", want: http.StatusBadRequest},
		{name: "bad after", path: "/api/v1/lobbies?after=-1", want: http.StatusBadRequest},
		{name: "inverted range", path: "/api/v1/lobbies?after=300&before=100", want: http.StatusBadRequest},
		{name: "lobby found", path: "/api/v1/lobbies/g1", want: http.StatusOK},
		{name: "lobby missing", path: "/api/v1/lobbies/zz", want: http.StatusNotFound},
		{name: "game missing", path: "/api/v1/games/g1", want: http.StatusNotFound},
		{name: "player stats missing", path: "/api/v1/games/g1/player_stats", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodGet, tt.path)
			if w.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAnalyzeEnqueueAndCancel(t *testing.T) {
	mem := store.NewMemory()
	router := NewRouter(mem)

	w := doRequest(t, router, http.MethodPost, "/api/v1/games/g1/analyze")
	if w.Code != http.StatusCreated {
		t.Fatalf("enqueue status=%d body=%s", w.Code, w.Body.String())
	}
	w = doRequest(t, router, http.MethodGet, "/api/v1/games/g1/analyze")
	if w.Code != http.StatusOK {
		t.Fatalf("repeat enqueue status=%d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/analysis_queue")
	if w.Code != http.StatusOK {
		t.Fatalf("queue status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"game_id":"g1"`) {
		t.Fatalf("queue body = %s, want g1", w.Body.String())
	}

	w = doRequest(t, router, http.MethodDelete, "/api/v1/games/g1/analyze")
	if w.Code != http.StatusNoContent {
		t.Fatalf("cancel status=%d body=%s", w.Code, w.Body.String())
	}
	w = doRequest(t, router, http.MethodDelete, "/api/v1/games/g1/analyze")
	if w.Code != http.StatusConflict {
		t.Fatalf("second cancel status=%d, want 409", w.Code)
	}

	entry, err := mem.GetAnalysisEntry(context.Background(), "g1")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.Status != store.AnalysisCancelled {
		t.Fatalf("status = %s, want Cancelled", entry.Status)
	}
}

func TestAnalyzeRecordsRequester(t *testing.T) {
	mem := store.NewMemory()
	router := NewRouter(mem)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/games/g9/analyze", nil)
	req.Header.Set("X-Requested-By", "user-7")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	entry, err := mem.GetAnalysisEntry(context.Background(), "g9")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if entry.RequestedBy == nil || *entry.RequestedBy != "user-7" {
		t.Fatalf("requested_by = %v, want user-7", entry.RequestedBy)
	}
}

func TestGameEndpointAgainstPostgres(t *testing.T) {
	st, err := store.New(testutil.MigratedDSN(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	if err := st.FinalizeGame(ctx, store.FinishedGame{
		GameID:          "pg1",
		ResultJSON:      json.RawMessage(`{"info":{"winner":["player","x"]}}`),
		IsOK:            true,
		RecordedUnixSec: time.Now().Unix(),
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	router := NewRouter(st)

	w := doRequest(t, router, http.MethodGet, "/api/v1/games/pg1")
	if w.Code != http.StatusOK {
		t.Fatalf("game status=%d body=%s", w.Code, w.Body.String())
	}
	var got struct {
		GameID string `json:"game_id"`
		IsOK   bool   `json:"is_ok"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GameID != "pg1" || !got.IsOK {
		t.Fatalf("game = %+v", got)
	}
	w = doRequest(t, router, http.MethodGet, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", w.Code)
	}
}

func TestAnalyzeRequeuesStalledEntry(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	router := NewRouter(mem)

	if w := doRequest(t, router, http.MethodPost, "/api/v1/games/g1/analyze"); w.Code != http.StatusCreated {
		t.Fatalf("enqueue status=%d", w.Code)
	}
	entry, err := mem.NextPendingAnalysis(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := mem.SetAnalysisStatus(ctx, entry.ID, store.AnalysisRunning, time.Unix(100, 0)); err != nil {
		t.Fatalf("running: %v", err)
	}
	if _, err := mem.MarkStalledAnalyses(ctx, time.Unix(200, 0)); err != nil {
		t.Fatalf("stall: %v", err)
	}

	w := doRequest(t, router, http.MethodPost, "/api/v1/games/g1/analyze")
	if w.Code != http.StatusCreated {
		t.Fatalf("requeue status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"requeued":true`) {
		t.Fatalf("requeue body = %s", w.Body.String())
	}
}
