package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	appanalysis "lobbywatch/internal/app/analysis"
	apppublic "lobbywatch/internal/app/public"
	"lobbywatch/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Backend is everything the HTTP surface reads or writes.
type Backend interface {
	apppublic.Reader
	appanalysis.Queue
	Ping(ctx context.Context) error
}

var (
	_ Backend = (*store.Store)(nil)
	_ Backend = (*store.Memory)(nil)
)

func NewRouter(backend Backend) *chi.Mux {
	publicHandlers := NewPublicHandlers(apppublic.NewService(backend))
	analysisHandlers := NewAnalysisHandlers(appanalysis.NewService(backend))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(MetricsMiddleware())

	r.Get("/healthz", Health(backend))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/lobbies", publicHandlers.Lobbies())
		r.Get("/lobbies/{game_id}", publicHandlers.Lobby())
		r.Get("/games/{game_id}", publicHandlers.Game())
		r.Get("/games/{game_id}/player_stats", publicHandlers.PlayerStats())
		// GET enqueues too so the request can be made from a plain link.
		r.Get("/games/{game_id}/analyze", analysisHandlers.Enqueue())
		r.Post("/games/{game_id}/analyze", analysisHandlers.Enqueue())
		r.Delete("/games/{game_id}/analyze", analysisHandlers.Cancel())
		r.Get("/analysis_queue", publicHandlers.AnalysisQueue())
	})
	return r
}

func Health(p interface{ Ping(context.Context) error }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("%s %s; ", rt.Method, rt.Path))
	}
	log.Debug().Int("count", len(routes)).Str("routes", strings.TrimSuffix(b.String(), "; ")).Msg("registered routes")
}
