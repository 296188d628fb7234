package api

import (
	"net/http"
)

// GetConnection returns the configured source and target with secrets masked.
func (s *Server) GetConnection(w http.ResponseWriter, r *http.Request) {
	cfg := s.Workbench.Config()
	conn := cfg.Connection()
	writeJSON(w, http.StatusOK, map[string]any{
		"source": map[string]any{
			"driver": cfg.DB.Driver,
			"host":   cfg.DB.Host,
			"port":   cfg.DB.Port,
			"dbname": cfg.DB.Name,
			"user":   cfg.DB.User,
			"schema": cfg.DB.Schema,
		},
		"target": map[string]any{
			"url":        conn.BaseURL(),
			"username":   conn.Username,
			"password":   conn.MaskedPassword(),
			"verify_ssl": !conn.Insecure,
			"timeout":    conn.Timeout.String(),
		},
	})
}

// RunVerify runs the preflight checks synchronously. The run is recorded as
// a verify job so it shows up next to migrations in the job history.
func (s *Server) RunVerify(w http.ResponseWriter, r *http.Request) {
	job := s.Jobs.Create("verify")
	log := s.jobLogger(job)

	checks, err := s.Workbench.Verify(r.Context(), log)
	for _, c := range checks {
		if c.Passed {
			log.Infof("PASS: %s", c.Name)
		} else {
			log.Warnf("FAIL: %s: %s", c.Name, c.Detail)
		}
	}
	resp := map[string]any{"ok": err == nil, "checks": checks, "job_id": job.ID}
	if err != nil {
		job.Fail(err.Error())
		resp["error"] = err.Error()
	} else {
		job.Complete()
	}
	writeJSON(w, http.StatusOK, resp)
}
