package httptransport

import (
	"errors"
	"net/http"

	appanalysis "lobbywatch/internal/app/analysis"

	"github.com/go-chi/chi/v5"
)

type AnalysisHandlers struct {
	analysisSvc *appanalysis.Service
}

func NewAnalysisHandlers(analysisSvc *appanalysis.Service) *AnalysisHandlers {
	return &AnalysisHandlers{analysisSvc: analysisSvc}
}

// Enqueue answers 201 when an entry was created or put back to Pending and
// 200 when the existing entry was left as is.
func (h *AnalysisHandlers) Enqueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var requestedBy *string
		if v := r.Header.Get("X-Requested-By"); v != "" {
			requestedBy = &v
		}
		resp, err := h.analysisSvc.Enqueue(r.Context(), chi.URLParam(r, "game_id"), requestedBy)
		if err != nil {
			writeAnalysisError(w, err)
			return
		}
		status := http.StatusOK
		if resp.Created || resp.Requeued {
			status = http.StatusCreated
		}
		WriteJSON(w, status, resp)
	}
}

func (h *AnalysisHandlers) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.analysisSvc.Cancel(r.Context(), chi.URLParam(r, "game_id")); err != nil {
			writeAnalysisError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appanalysis.ErrInvalidGameID):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_game_id")
	case errors.Is(err, appanalysis.ErrNotCancellable):
		WriteHTTPError(w, http.StatusConflict, "not_cancellable")
	default:
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
