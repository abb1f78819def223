package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/dwell-core/internal/tracking"
)

// addSourceRequest is the body for POST /sources.
type addSourceRequest struct {
	SourceID string `json:"source_id"`
}

// listSourcesResponse wraps the snapshot list with a count for convenience.
type listSourcesResponse struct {
	Sources []tracking.Snapshot `json:"sources"`
	Count   int                 `json:"count"`
}

// handleListSources returns live snapshots for every tracked source.
func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request) {
	snapshots := s.registry.Snapshots()
	writeJSON(w, http.StatusOK, listSourcesResponse{
		Sources: snapshots,
		Count:   len(snapshots),
	})
}

// handleAddSource begins tracking a new source.
func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "source_id is required")
		return
	}

	if s.registry.IsTracked(sourceID) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "source is already tracked")
		return
	}

	if err := s.registry.AddSource(r.Context(), sourceID); err != nil {
		if errors.Is(err, tracking.ErrInvalidSourceID) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid source id")
			return
		}
		s.logger.Error("failed to add source", "source_id", sourceID, "error", err)
		writeInternalError(w, "failed to add source")
		return
	}

	snapshot, err := s.registry.GetSnapshot(sourceID)
	if err != nil {
		writeInternalError(w, "failed to read new source")
		return
	}

	writeJSON(w, http.StatusCreated, snapshot)
}

// handleGetSource returns the live snapshot for one source.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")

	snapshot, err := s.registry.GetSnapshot(sourceID)
	if err != nil {
		if errors.Is(err, tracking.ErrSourceNotTracked) {
			writeNotFound(w, "source not tracked")
			return
		}
		s.logger.Error("failed to get snapshot", "source_id", sourceID, "error", err)
		writeInternalError(w, "failed to get snapshot")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// handleRemoveSource stops tracking a source and deletes its history.
func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")

	if err := s.registry.RemoveSource(r.Context(), sourceID); err != nil {
		if errors.Is(err, tracking.ErrSourceNotTracked) {
			writeNotFound(w, "source not tracked")
			return
		}
		s.logger.Error("failed to remove source", "source_id", sourceID, "error", err)
		writeInternalError(w, "failed to remove source")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleResetSource zeroes a source's accumulated totals.
func (s *Server) handleResetSource(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")

	if err := s.registry.ResetSource(r.Context(), sourceID); err != nil {
		if errors.Is(err, tracking.ErrSourceNotTracked) {
			writeNotFound(w, "source not tracked")
			return
		}
		s.logger.Error("failed to reset source", "source_id", sourceID, "error", err)
		writeInternalError(w, "failed to reset source")
		return
	}

	snapshot, err := s.registry.GetSnapshot(sourceID)
	if err != nil {
		writeInternalError(w, "failed to read source after reset")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
