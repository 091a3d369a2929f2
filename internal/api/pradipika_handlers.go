package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vedicportal/portal/internal/portal"
	"github.com/vedicportal/portal/internal/pradipika"
)

type syncResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Total     int                  `json:"total"`
	Synced    int                  `json:"synced"`
	NewIssues []pradipika.NewIssue `json:"newIssues,omitempty"`
}

type syncStatusResponse struct {
	Success          bool `json:"success"`
	IssuesInDatabase int  `json:"issuesInDatabase"`
}

type listResponse struct {
	Success bool `json:"success"`
	pradipika.Listing
}

type detailResponse struct {
	Success bool `json:"success"`
	pradipika.Detail
}

func (s *Server) syncIssues(w http.ResponseWriter, r *http.Request) {
	res, err := s.issues.Sync(r.Context())
	if err != nil {
		s.logger.Error("pradipika sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	message := "No new issues to sync"
	if res.Synced > 0 {
		message = fmt.Sprintf("Synced %d new issues", res.Synced)
	}
	writeJSON(w, http.StatusOK, syncResponse{
		Success:   true,
		Message:   message,
		Total:     res.Total,
		Synced:    res.Synced,
		NewIssues: res.NewIssues,
	})
}

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	n, err := s.issues.Count(r.Context())
	if err != nil {
		s.logger.Error("issue count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, syncStatusResponse{Success: true, IssuesInDatabase: n})
}

func (s *Server) liveIssues(w http.ResponseWriter, r *http.Request) {
	records, source, err := s.issues.Live(r.Context())
	if err != nil {
		s.logger.Error("live issue listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []portal.IssueRecord{}
	}
	w.Header().Set("X-Portal-Source", string(source))
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := portal.IssueFilter{
		Year:        q.Get("year"),
		SpecialOnly: q.Get("special") == "true",
		SpecialType: q.Get("specialType"),
		Limit:       queryInt(q.Get("limit"), pradipika.DefaultListLimit),
		Offset:      queryInt(q.Get("offset"), 0),
	}
	listing, err := s.issues.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("issue listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Listing: listing})
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	detail, err := s.issues.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, portal.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Issue not found")
		return
	}
	if err != nil {
		s.logger.Error("issue lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, detailResponse{Success: true, Detail: detail})
}

func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
