package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/journal"
	"github.com/rflorenc/nexus-migration-workbench/internal/logging"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/workbench"
)

type migrateRequest struct {
	DryRun bool     `json:"dry_run"`
	Only   []string `json:"only"`
}

type rollbackRequest struct {
	RunID      string `json:"run_id"`
	FromBackup bool   `json:"from_backup"`
}

// decodeBody accepts an empty body as the zero request.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// jobLogger returns a logger that writes to the server log and mirrors every
// line into the job output.
func (s *Server) jobLogger(job *models.Job) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(s.Log.Out)
	l.SetFormatter(s.Log.Formatter)
	l.SetLevel(s.Log.GetLevel())
	l.AddHook(logging.NewJobHook(job))
	return l
}

// startJob creates the job and runs fn in the background with a cancellable
// context. It answers 409 while another run is in progress.
func (s *Server) startJob(w http.ResponseWriter, jobType string, fn func(ctx context.Context, job *models.Job, log *logrus.Logger) error) {
	job, ok := s.Jobs.CreateExclusive(jobType)
	if !ok {
		writeError(w, http.StatusConflict, "another run is in progress")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	job.SetCancel(cancel)
	log := s.jobLogger(job)

	go func() {
		defer cancel()
		if err := fn(ctx, job, log); err != nil {
			log.Errorf("ERROR: %v", err)
			job.Fail(err.Error())
			return
		}
		job.Complete()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// RunMigrate starts a migration job.
func (s *Server) RunMigrate(w http.ResponseWriter, r *http.Request) {
	var req migrateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	kinds := make([]models.Kind, 0, len(req.Only))
	for _, name := range req.Only {
		k, err := models.ParseKind(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kinds = append(kinds, k)
	}

	runID := uuid.New().String()
	s.startJob(w, "migrate", func(ctx context.Context, job *models.Job, log *logrus.Logger) error {
		job.SetRun(runID, nil)
		rep, _, err := s.Workbench.Migrate(ctx, workbench.MigrateOptions{
			RunID:  runID,
			DryRun: req.DryRun,
			Kinds:  kinds,
			Log:    log,
		})
		if rep != nil {
			job.SetRun(rep.RunID, rep.Stages)
		}
		return err
	})
}

// RunRollback starts a rollback job.
func (s *Server) RunRollback(w http.ResponseWriter, r *http.Request) {
	var req rollbackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.startJob(w, "rollback", func(ctx context.Context, job *models.Job, log *logrus.Logger) error {
		rep, err := s.Workbench.Rollback(ctx, workbench.RollbackOptions{
			RunID:      req.RunID,
			FromBackup: req.FromBackup,
			Log:        log,
		})
		if rep == nil {
			return err
		}
		job.SetRun(rep.RunID, rep.Stats)
		if err == nil && rep.Failed() > 0 {
			err = errors.Errorf("%d deletes failed", rep.Failed())
		}
		return err
	})
}

func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Workbench.Journal().Runs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Workbench.Journal().Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJournalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) ListOutcomes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	store := s.Workbench.Journal()
	if _, err := store.Run(r.Context(), id); err != nil {
		writeJournalError(w, err)
		return
	}
	outcomes, err := store.Outcomes(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result := r.URL.Query().Get("result"); result != "" {
		filtered := outcomes[:0]
		for _, o := range outcomes {
			if string(o.Result) == result {
				filtered = append(filtered, o)
			}
		}
		outcomes = filtered
	}
	writeJSON(w, http.StatusOK, outcomes)
}

// GetRollbackPlan shows what a rollback of the run would delete.
func (s *Server) GetRollbackPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Workbench.Journal().Plan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJournalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func writeJournalError(w http.ResponseWriter, err error) {
	if errors.Is(err, journal.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
