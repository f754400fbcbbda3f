package httptransport

import (
	"errors"
	"net/http"
	"strconv"

	apppublic "lobbywatch/internal/app/public"
	"lobbywatch/internal/store"

	"github.com/go-chi/chi/v5"
)

type PublicHandlers struct {
	publicSvc *apppublic.Service
}

func NewPublicHandlers(publicSvc *apppublic.Service) *PublicHandlers {
	return &PublicHandlers{publicSvc: publicSvc}
}

func (h *PublicHandlers) Lobbies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseLobbyFilter(r)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		resp, err := h.publicSvc.Lobbies(r.Context(), f)
		if err != nil {
			writePublicError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Lobby() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.publicSvc.Lobby(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writePublicError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Game() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.publicSvc.Game(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writePublicError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) AnalysisQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.publicSvc.AnalysisQueue(r.Context())
		if err != nil {
			writePublicError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) PlayerStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.publicSvc.PlayerStats(r.Context(), chi.URLParam(r, "game_id"))
		if err != nil {
			writePublicError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func writePublicError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apppublic.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, apppublic.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, "not_found")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}

func parseLobbyFilter(r *http.Request) (store.LobbyFilter, error) {
	q := r.URL.Query()
	limit, offset := ParsePagination(r)
	f := store.LobbyFilter{MapName: q.Get("map"), Limit: limit, Offset: offset}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, err
		}
		f.Completed = &b
	}
	for key, dst := range map[string]*int64{"after": &f.After, "before": &f.Before} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return f, errors.New("bad " + key)
		}
		*dst = n
	}
	return f, nil
}
