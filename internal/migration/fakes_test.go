package migration

import (
	"context"
	"iter"
	"net/http"
	"sync"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/platform"
	"github.com/rflorenc/nexus-migration-workbench/internal/source"
)

// fakeSource serves fixed rows per kind. Rows for failKind yield a
// DataSourceError after failAfter rows.
type fakeSource struct {
	rows      map[models.Kind][]models.Row
	failKind  models.Kind
	failAfter int
	beginErr  error
	countErr  error

	mu        sync.Mutex
	commits   int
	rollbacks int
	opened    []models.Kind
}

func (s *fakeSource) BeginRead(ctx context.Context) (source.Scope, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return &fakeScope{src: s}, nil
}

type fakeScope struct {
	src *fakeSource
}

func (sc *fakeScope) Count(ctx context.Context, kind models.Kind) (int, error) {
	if sc.src.countErr != nil {
		return 0, sc.src.countErr
	}
	return len(sc.src.rows[kind]), nil
}

func (sc *fakeScope) Rows(ctx context.Context, kind models.Kind) iter.Seq2[models.Row, error] {
	sc.src.mu.Lock()
	sc.src.opened = append(sc.src.opened, kind)
	sc.src.mu.Unlock()
	return func(yield func(models.Row, error) bool) {
		for i, row := range sc.src.rows[kind] {
			if kind == sc.src.failKind && i == sc.src.failAfter {
				yield(nil, &models.DataSourceError{Op: "fetch " + string(kind), Err: context.DeadlineExceeded})
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if kind == sc.src.failKind && sc.src.failAfter >= len(sc.src.rows[kind]) {
			yield(nil, &models.DataSourceError{Op: "fetch " + string(kind), Err: context.DeadlineExceeded})
		}
	}
}

func (sc *fakeScope) BackupIdentifiers(ctx context.Context) (models.RollbackPlan, error) {
	return models.RollbackPlan{}, nil
}

func (sc *fakeScope) Commit() error {
	sc.src.mu.Lock()
	defer sc.src.mu.Unlock()
	sc.src.commits++
	return nil
}

func (sc *fakeScope) Rollback() error {
	sc.src.mu.Lock()
	defer sc.src.mu.Unlock()
	sc.src.rollbacks++
	return nil
}

type call struct {
	op      platform.Operation
	path    string
	payload any
}

// fakeTarget answers from a status function and records every call.
type fakeTarget struct {
	mu     sync.Mutex
	calls  []call
	answer func(op platform.Operation, path string, payload any) (int, string)
}

func (f *fakeTarget) Submit(ctx context.Context, op platform.Operation, path string, payload any) platform.Result {
	f.mu.Lock()
	f.calls = append(f.calls, call{op, path, payload})
	f.mu.Unlock()

	status, body := http.StatusCreated, ""
	if f.answer != nil {
		status, body = f.answer(op, path, payload)
	}
	return platform.Classify(op, path, status, []byte(body))
}

type memJournal struct {
	started  []string
	outcomes []models.Outcome
	finished map[string]string
	failOn   int
}

func (j *memJournal) StartRun(ctx context.Context, runID string, dryRun bool) error {
	j.started = append(j.started, runID)
	return nil
}

func (j *memJournal) RecordOutcome(ctx context.Context, runID string, o models.Outcome) error {
	if j.failOn > 0 && len(j.outcomes)+1 == j.failOn {
		return context.Canceled
	}
	j.outcomes = append(j.outcomes, o)
	return nil
}

func (j *memJournal) FinishRun(ctx context.Context, runID, status string, stats []models.StageStatistics) error {
	if j.finished == nil {
		j.finished = map[string]string{}
	}
	j.finished[runID] = status
	return nil
}
