package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// seriesRequest carries one complete shot card for a series.
type seriesRequest struct {
	Shots []int `json:"shots" validate:"required,len=10,dive,gte=0,lte=10"`
}

// shotRequest updates a single shot.
type shotRequest struct {
	Score int `json:"score" validate:"gte=0,lte=10"`
}

// handlePostSeries handles POST /scores/{participant}/series/{series}.
// Re-submitting the same series replaces it; aggregates are recomputed
// in the same transaction.
func (s *Server) handlePostSeries(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participant")
	seriesNumber, err := strconv.Atoi(r.PathValue("series"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	stored, err := s.deps.RecordSeries(r.Context(), participantID, seriesNumber, req.Shots)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// handlePutShot handles PUT /scores/{participant}/series/{series}/shots/{shot}.
func (s *Server) handlePutShot(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participant")
	seriesNumber, err := strconv.Atoi(r.PathValue("series"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	shotNumber, err := strconv.Atoi(r.PathValue("shot"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var req shotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := s.deps.RecordShot(r.Context(), participantID, seriesNumber, shotNumber, req.Score); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleGetSeries handles GET /scores/{participant}.
func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.deps.ListSeries(r.Context(), r.PathValue("participant"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// handleDeleteSeries handles DELETE /scores/{participant}/series/{series}.
func (s *Server) handleDeleteSeries(w http.ResponseWriter, r *http.Request) {
	participantID := r.PathValue("participant")
	seriesNumber, err := strconv.Atoi(r.PathValue("series"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := s.deps.DeleteSeries(r.Context(), participantID, seriesNumber); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
