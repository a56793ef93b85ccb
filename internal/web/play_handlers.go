package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gamebook/server/internal/interfaces"
	"gamebook/server/internal/play"
	"gamebook/server/internal/scenario"
	"gamebook/server/internal/storage"
)

// ImportResponse is the result of a scenario import
type ImportResponse struct {
	Success    bool   `json:"success"`
	ScenarioID uint   `json:"scenario_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SessionResponse carries a play session view
type SessionResponse struct {
	Success    bool                    `json:"success"`
	Session    *interfaces.SessionView `json:"session,omitempty"`
	NeedsStart bool                    `json:"needs_start,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// HistoryResponse carries a session's choice record
type HistoryResponse struct {
	Success bool                    `json:"success"`
	History *interfaces.HistoryView `json:"history,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// ListResponse carries the scenario catalog
type ListResponse struct {
	Success   bool                         `json:"success"`
	Scenarios []interfaces.ScenarioSummary `json:"scenarios,omitempty"`
	Error     string                       `json:"error,omitempty"`
}

// StatsResponse carries per-scenario completion counts
type StatsResponse struct {
	Success bool                      `json:"success"`
	Stats   *interfaces.ScenarioStats `json:"stats,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// ImportScenario accepts a scenario document and imports it
func (h *Handlers) ImportScenario(w http.ResponseWriter, r *http.Request) {
	doc, err := scenario.Parse(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ImportResponse{Error: err.Error()})
		return
	}

	id, err := h.importer.Import(r.Context(), doc)
	if err != nil {
		var verr *scenario.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ImportResponse{Error: verr.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ImportResponse{Error: "import failed"})
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{Success: true, ScenarioID: id})
}

// ListScenarios returns the catalog annotated with the reader's progress
func (h *Handlers) ListScenarios(w http.ResponseWriter, r *http.Request) {
	readerID := r.Header.Get("X-Reader-ID")

	summaries, err := h.machine.ListScenarios(r.Context(), readerID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ListResponse{Error: "failed to list scenarios"})
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Success: true, Scenarios: summaries})
}

// ScenarioStats returns completion counts for one scenario
func (h *Handlers) ScenarioStats(w http.ResponseWriter, r *http.Request) {
	scenarioID, ok := h.scenarioID(w, r)
	if !ok {
		return
	}

	stats, err := h.machine.ScenarioStats(r.Context(), scenarioID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, StatsResponse{Error: "scenario not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, StatsResponse{Error: "failed to load stats"})
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: stats})
}

// StartSession starts a fresh session, destroying any prior one for the pair
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	readerID, scenarioID, ok := h.playParams(w, r)
	if !ok {
		return
	}

	view, err := h.machine.Start(r.Context(), readerID, scenarioID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, SessionResponse{Error: "scenario not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, SessionResponse{Error: "failed to start session"})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Success: true, Session: view})
}

// ChooseSelection records a choice and advances the session
func (h *Handlers) ChooseSelection(w http.ResponseWriter, r *http.Request) {
	readerID, scenarioID, ok := h.playParams(w, r)
	if !ok {
		return
	}
	selectionID, err := strconv.ParseUint(chi.URLParam(r, "selectionID"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, SessionResponse{Error: "invalid selection id"})
		return
	}

	view, err := h.machine.Choose(r.Context(), readerID, scenarioID, uint(selectionID))
	if err != nil {
		switch {
		case errors.Is(err, play.ErrInvalidSelection):
			// Send the scene the session actually stands on so the client
			// can re-render it.
			resp := SessionResponse{Error: "invalid selection"}
			if current, verr := h.machine.ViewCurrent(r.Context(), readerID, scenarioID); verr == nil {
				resp.Session = current
			}
			writeJSON(w, http.StatusConflict, resp)
		case errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, SessionResponse{Error: "no session; start first", NeedsStart: true})
		default:
			writeJSON(w, http.StatusInternalServerError, SessionResponse{Error: "failed to advance session"})
		}
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Success: true, Session: view})
}

// CurrentView returns the session's current scene and selections
func (h *Handlers) CurrentView(w http.ResponseWriter, r *http.Request) {
	readerID, scenarioID, ok := h.playParams(w, r)
	if !ok {
		return
	}

	view, err := h.machine.ViewCurrent(r.Context(), readerID, scenarioID)
	if err != nil {
		switch {
		case errors.Is(err, play.ErrNeedsStart):
			writeJSON(w, http.StatusNotFound, SessionResponse{Error: "no session; start first", NeedsStart: true})
		case errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, SessionResponse{Error: "scenario not found", NeedsStart: true})
		default:
			writeJSON(w, http.StatusInternalServerError, SessionResponse{Error: "failed to load session"})
		}
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Success: true, Session: view})
}

// HistoryView returns the session's ordered choice record
func (h *Handlers) HistoryView(w http.ResponseWriter, r *http.Request) {
	readerID, scenarioID, ok := h.playParams(w, r)
	if !ok {
		return
	}

	view, err := h.machine.ViewHistory(r.Context(), readerID, scenarioID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, HistoryResponse{Error: "no session; start first"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, HistoryResponse{Error: "failed to load history"})
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Success: true, History: view})
}

func (h *Handlers) scenarioID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "scenarioID"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, SessionResponse{Error: "invalid scenario id"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handlers) playParams(w http.ResponseWriter, r *http.Request) (string, uint, bool) {
	readerID := r.Header.Get("X-Reader-ID")
	if readerID == "" {
		writeJSON(w, http.StatusBadRequest, SessionResponse{Error: "X-Reader-ID header is required"})
		return "", 0, false
	}
	scenarioID, ok := h.scenarioID(w, r)
	if !ok {
		return "", 0, false
	}
	return readerID, scenarioID, true
}
