package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.Jobs.List()
	out := make([]models.JobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job := s.Jobs.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// CancelJob cancels a running job. Stages already committed stay committed.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job := s.Jobs.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if !job.Cancel() {
		writeError(w, http.StatusConflict, "job is not running")
		return
	}
	job.AppendLog("CANCELLED: run stopped by user")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
