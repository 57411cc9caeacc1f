package api

import (
	"net/http"

	"github.com/okian/medalist/internal/domain/model"
)

// handleExportCSV handles GET /rankings/{competition}/export.
// Streams the full ranking of the filtered set as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	competitionID := r.PathValue("competition")
	f := filterFromQuery(r, competitionID)
	if f.SectionType == "" {
		f.SectionType = model.SectionMain
	}

	out, err := s.deps.ExportRankingCSV(r.Context(), f)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="rankings_competition_`+competitionID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
