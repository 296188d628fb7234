// Package journal is the local SQLite ledger of migration runs. It records
// every outcome as it happens so entities created by a run, including an
// aborted one, can be rolled back later.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Run statuses beyond the ones the runner writes.
const (
	StatusRunning    = "running"
	StatusRolledBack = "rolled_back"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Store is an open journal database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) the journal at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating journal directory")
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening journal")
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrating journal")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         string                   `json:"id"`
	DryRun     bool                     `json:"dry_run"`
	Status     string                   `json:"status"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	Stats      []models.StageStatistics `json:"stats,omitempty"`
}

type runRow struct {
	ID         string         `db:"id"`
	DryRun     bool           `db:"dry_run"`
	Status     string         `db:"status"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
	Stats      sql.NullString `db:"stats"`
}

func (r runRow) toRecord() RunRecord {
	rec := RunRecord{ID: r.ID, DryRun: r.DryRun, Status: r.Status, StartedAt: parseTime(r.StartedAt)}
	if r.FinishedAt.Valid {
		t := parseTime(r.FinishedAt.String)
		rec.FinishedAt = &t
	}
	if r.Stats.Valid && r.Stats.String != "" {
		_ = json.Unmarshal([]byte(r.Stats.String), &rec.Stats)
	}
	return rec
}

type outcomeRow struct {
	Kind       string `db:"kind"`
	Identifier string `db:"identifier"`
	Format     string `db:"format"`
	Result     string `db:"result"`
	Detail     string `db:"detail"`
	Flagged    bool   `db:"flagged"`
	RecordedAt string `db:"recorded_at"`
}

func (o outcomeRow) toModel() models.Outcome {
	return models.Outcome{
		Kind:       models.Kind(o.Kind),
		Identifier: o.Identifier,
		Format:     o.Format,
		Result:     models.Result(o.Result),
		Detail:     o.Detail,
		Flagged:    o.Flagged,
		RecordedAt: parseTime(o.RecordedAt),
	}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// StartRun registers a new run.
func (s *Store) StartRun(ctx context.Context, runID string, dryRun bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, dry_run, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, dryRun, StatusRunning, formatTime(time.Now()))
	if err != nil {
		return errors.Wrap(err, "insert run")
	}
	return nil
}

// RecordOutcome appends one row outcome to a run.
func (s *Store) RecordOutcome(ctx context.Context, runID string, o models.Outcome) error {
	recorded := o.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes(run_id, kind, identifier, format, result, detail, flagged, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, string(o.Kind), o.Identifier, o.Format, string(o.Result), o.Detail, o.Flagged, formatTime(recorded))
	if err != nil {
		return errors.Wrap(err, "insert outcome")
	}
	return nil
}

// FinishRun stores the final status and statistics.
func (s *Store) FinishRun(ctx context.Context, runID, status string, stats []models.StageStatistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "encode stats")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, stats = ? WHERE id = ?`,
		status, formatTime(time.Now()), string(data), runID)
	if err != nil {
		return errors.Wrap(err, "update run")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	return nil
}

// Run returns one run.
func (s *Store) Run(ctx context.Context, runID string) (RunRecord, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT id, dry_run, status, started_at, finished_at, stats FROM runs WHERE id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, errors.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	if err != nil {
		return RunRecord{}, errors.Wrap(err, "select run")
	}
	return row.toRecord(), nil
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunRecord, error) {
	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, dry_run, status, started_at, finished_at, stats FROM runs ORDER BY started_at DESC, rowid DESC`); err != nil {
		return nil, errors.Wrap(err, "select runs")
	}
	out := make([]RunRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

// LatestRun returns the newest non-dry run, which is what a rollback
// without an explicit id targets.
func (s *Store) LatestRun(ctx context.Context) (RunRecord, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, dry_run, status, started_at, finished_at, stats FROM runs
		 WHERE dry_run = 0 ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, errors.Wrap(err, "select latest run")
	}
	return row.toRecord(), nil
}

// Outcomes lists a run's outcomes in recording order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]models.Outcome, error) {
	var rows []outcomeRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT kind, identifier, format, result, detail, flagged, recorded_at
		 FROM outcomes WHERE run_id = ? ORDER BY id`, runID); err != nil {
		return nil, errors.Wrap(err, "select outcomes")
	}
	out := make([]models.Outcome, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Plan returns the entities a run created and that are not yet rolled back.
// Conflicts (pre-existing entities) are never included. Dry runs have an
// empty plan.
func (s *Store) Plan(ctx context.Context, runID string) (models.RollbackPlan, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	plan := models.RollbackPlan{}
	if run.DryRun {
		return plan, nil
	}

	var rows []outcomeRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT kind, identifier, format, result, detail, flagged, recorded_at
		 FROM outcomes
		 WHERE run_id = ? AND result = ? AND rolled_back_at IS NULL
		 ORDER BY id`, runID, string(models.ResultSuccess)); err != nil {
		return nil, errors.Wrap(err, "select created entities")
	}
	for _, r := range rows {
		kind := models.Kind(r.Kind)
		plan[kind] = append(plan[kind], models.Identifier{Kind: kind, ID: r.Identifier, Format: r.Format})
	}
	return plan, nil
}

// MarkRolledBack records deleted entities in one transaction. The run is
// marked rolled back once nothing it created remains.
func (s *Store) MarkRolledBack(ctx context.Context, runID string, ids []models.Identifier) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE outcomes SET rolled_back_at = ?
			 WHERE run_id = ? AND kind = ? AND identifier = ? AND result = ? AND rolled_back_at IS NULL`,
			now, runID, string(id.Kind), id.ID, string(models.ResultSuccess)); err != nil {
			return errors.Wrapf(err, "mark %s %s", id.Kind, id.ID)
		}
	}

	var remaining int
	if err := tx.GetContext(ctx, &remaining,
		`SELECT COUNT(*) FROM outcomes WHERE run_id = ? AND result = ? AND rolled_back_at IS NULL`,
		runID, string(models.ResultSuccess)); err != nil {
		return errors.Wrap(err, "count remaining")
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET status = ? WHERE id = ?`, StatusRolledBack, runID); err != nil {
			return errors.Wrap(err, "update run status")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}
