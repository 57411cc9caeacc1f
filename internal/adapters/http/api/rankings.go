package api

import (
	"net/http"
	"strconv"

	"github.com/okian/medalist/internal/domain/model"
	"github.com/okian/medalist/internal/domain/ranking"
)

type rankingResponse struct {
	Entries []ranking.Entry `json:"entries"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// handleGetRanking handles GET /rankings/{competition}.
// Query: event, age_category, gender, detail_id, section_type
// (default main), limit, page (1-based). Ranks the whole filtered set
// before slicing so positions are stable across pages.
func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r, r.PathValue("competition"))
	if f.SectionType == "" {
		f.SectionType = model.SectionMain
	}

	limit, page, err := s.pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entries, total, err := s.deps.ComputeRanking(r.Context(), f, limit, (page-1)*limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankingResponse{
		Entries: entries,
		Total:   total,
		Page:    page,
		Limit:   limit,
	})
}

// pagination parses limit and page with the server's bounds applied.
func (s *Server) pagination(r *http.Request) (limit, page int, err error) {
	limit = s.pageLimit
	page = 1
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, ErrBadRequest
		}
		if limit > s.maxLimit {
			return 0, 0, ErrLimitExceeded
		}
	}
	if raw := q.Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, ErrBadRequest
		}
	}
	return limit, page, nil
}
