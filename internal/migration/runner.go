package migration

import (
	"context"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/mapping"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/platform"
)

// StageState tracks a stage through its lifecycle.
type StageState string

const (
	StateNotStarted StageState = "not_started"
	StateReading    StageState = "reading"
	StateProcessing StageState = "processing"
	StateCommitted  StageState = "committed"
	StateRolledBack StageState = "rolled_back"
)

// RunnerConfig wires a Runner. Journal and Observer are optional.
type RunnerConfig struct {
	Source   Source
	Mapper   *mapping.Mapper
	Target   Submitter
	Journal  Journal
	Observer Observer
	Log      logrus.FieldLogger
	RunID    string
	DryRun   bool
	// Kinds restricts the run to a subset; order always follows
	// models.MigrationOrder.
	Kinds []models.Kind
}

// Runner executes stages strictly in order, one row at a time.
type Runner struct {
	cfg      RunnerConfig
	log      logrus.FieldLogger
	stats    *Aggregator
	outcomes []models.Outcome
	states   map[models.Kind]StageState
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.RunID == "" {
		cfg.RunID = uuid.New().String()
	}
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	states := make(map[models.Kind]StageState, len(models.MigrationOrder))
	for _, k := range models.MigrationOrder {
		states[k] = StateNotStarted
	}
	return &Runner{
		cfg:    cfg,
		log:    log.WithField("run", cfg.RunID),
		stats:  NewAggregator(),
		states: states,
	}
}

// RunID identifies this run in the journal.
func (r *Runner) RunID() string { return r.cfg.RunID }

// State returns the lifecycle state of a stage.
func (r *Runner) State(kind models.Kind) StageState { return r.states[kind] }

// Statistics returns the committed tallies so far.
func (r *Runner) Statistics() []models.StageStatistics {
	return r.stats.Snapshot(r.kinds())
}

func (r *Runner) kinds() []models.Kind {
	if len(r.cfg.Kinds) == 0 {
		return models.MigrationOrder
	}
	want := make(map[models.Kind]bool, len(r.cfg.Kinds))
	for _, k := range r.cfg.Kinds {
		want[k] = true
	}
	var out []models.Kind
	for _, k := range models.MigrationOrder {
		if want[k] {
			out = append(out, k)
		}
	}
	return out
}

// Run executes every stage. A stage-fatal error stops the run; the returned
// report is complete either way and the error is also stored on it.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: r.cfg.RunID, DryRun: r.cfg.DryRun, StartedAt: time.Now()}

	if r.cfg.Journal != nil {
		if err := r.cfg.Journal.StartRun(ctx, r.cfg.RunID, r.cfg.DryRun); err != nil {
			report.Err = errors.Wrap(err, "starting journal run")
			report.FinishedAt = time.Now()
			report.Stages = r.Statistics()
			return report, report.Err
		}
	}
	if r.cfg.DryRun {
		r.log.Info("dry run: rows are mapped but nothing is submitted")
	}

	for _, kind := range r.kinds() {
		if ctx.Err() != nil {
			r.log.Warn("Migration cancelled")
			report.FailedStage = kind
			report.Err = &models.StageFatalError{Kind: kind, Err: ctx.Err()}
			break
		}
		r.log.Infof("=== Migrating %s ===", kind)
		stats, err := r.RunStage(ctx, kind)
		if err != nil {
			r.log.WithField("stage", kind).Errorf("stage aborted: %v", err)
			report.FailedStage = kind
			report.Err = err
			break
		}
		r.log.WithField("stage", kind).Infof("%s done: total=%d success=%d failed=%d skipped=%d",
			kind.Label(), stats.Total, stats.Success, stats.Failed, stats.Skipped)
	}

	report.Stages = r.Statistics()
	report.Outcomes = r.outcomes
	report.FinishedAt = time.Now()

	if r.cfg.Journal != nil {
		status := RunCompleted
		if report.Err != nil {
			status = RunFailed
		}
		// The run context may already be cancelled; finishing is bookkeeping.
		if err := r.cfg.Journal.FinishRun(context.WithoutCancel(ctx), r.cfg.RunID, status, report.Stages); err != nil {
			r.log.Errorf("finishing journal run: %v", err)
		}
	}
	return report, report.Err
}

// RunStage migrates one kind. Row-level failures are recorded and the stage
// continues; anything else rolls back the read scope and returns a
// *models.StageFatalError without touching the run statistics.
func (r *Runner) RunStage(ctx context.Context, kind models.Kind) (models.StageStatistics, error) {
	log := r.log.WithField("stage", kind)
	r.states[kind] = StateReading

	scope, err := r.cfg.Source.BeginRead(ctx)
	if err != nil {
		r.states[kind] = StateRolledBack
		return models.StageStatistics{Kind: kind}, &models.StageFatalError{Kind: kind, Err: err}
	}

	abort := func(err error) (models.StageStatistics, error) {
		if rbErr := scope.Rollback(); rbErr != nil {
			log.Warnf("releasing read scope: %v", rbErr)
		}
		r.states[kind] = StateRolledBack
		return models.StageStatistics{Kind: kind}, &models.StageFatalError{Kind: kind, Err: err}
	}

	total, err := scope.Count(ctx, kind)
	if err != nil {
		return abort(err)
	}
	log.Infof("%d source row(s)", total)

	rows := scope.Rows(ctx, kind)
	if kind == models.KindRole {
		rows, err = r.prepareRoles(rows, log)
		if err != nil {
			return abort(err)
		}
	}

	r.states[kind] = StateProcessing
	local := NewAggregator()
	for row, err := range rows {
		if err != nil {
			return abort(err)
		}
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		outcome, err := r.processRow(ctx, row)
		if err != nil {
			return abort(err)
		}
		local.Record(outcome)
	}

	if err := scope.Commit(); err != nil {
		return abort(err)
	}
	r.states[kind] = StateCommitted
	r.stats.Merge(local)
	return local.Stage(kind), nil
}

// prepareRoles buffers the role rows so the child-role graph can be checked
// for cycles before any role is submitted.
func (r *Runner) prepareRoles(rows iter.Seq2[models.Row, error], log logrus.FieldLogger) (iter.Seq2[models.Row, error], error) {
	var buffered []models.Row
	var roles []models.LegacyRole
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		buffered = append(buffered, row)
		if role, ok := row.(models.LegacyRole); ok {
			roles = append(roles, role)
		}
	}
	cyclic := mapping.FindRoleCycles(roles)
	if len(cyclic) > 0 {
		log.Warnf("rejecting %d role(s) on child-role cycles: %v", len(cyclic), cyclic)
	}
	r.cfg.Mapper.RejectRoles(cyclic)

	return func(yield func(models.Row, error) bool) {
		for _, row := range buffered {
			if !yield(row, nil) {
				return
			}
		}
	}, nil
}

// processRow maps and submits one row. The returned error is stage-fatal;
// row-level problems are reported through the outcome.
func (r *Runner) processRow(ctx context.Context, row models.Row) (models.Outcome, error) {
	kind := row.Kind()
	log := r.log.WithFields(logrus.Fields{"stage": kind, "id": row.Identifier()})
	outcome := models.Outcome{Kind: kind, Identifier: row.Identifier()}

	decision, err := r.cfg.Mapper.Map(row)
	if err != nil {
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) {
			return outcome, errors.Wrapf(err, "mapping %s row %q", kind, row.Identifier())
		}
		outcome.Result = models.ResultFailed
		outcome.Detail = err.Error()
		log.Errorf("FAIL: %s", vErr.Reason)
		return r.finish(ctx, outcome)
	}

	outcome.Identifier = decision.Identifier
	outcome.Format = decision.Format
	if decision.IsSkip() {
		outcome.Result = models.ResultSkipped
		outcome.Detail = decision.Reason
		log.Infof("SKIP: %s", decision.Reason)
		return r.finish(ctx, outcome)
	}

	if r.cfg.DryRun {
		outcome.Result = models.ResultSuccess
		outcome.Detail = "dry run: would POST " + decision.Path
		log.Infof("PLAN: %s", decision.Path)
		return r.finish(ctx, outcome)
	}

	res := r.cfg.Target.Submit(ctx, platform.OpCreate, decision.Path, decision.Payload)
	switch {
	case res.Success():
		outcome.Result = models.ResultSuccess
		if got := responseIdentifier(kind, res.Body); got != "" && got != decision.Identifier {
			// Journal the identifier the target knows so rollback deletes
			// the entity that was actually created.
			outcome.Identifier = got
			outcome.Flagged = true
			outcome.Detail = fmt.Sprintf("submitted as %q, target reports identifier %q", decision.Identifier, got)
			log.Warnf("CREATED under a different identifier %q, review manually", got)
		} else {
			log.Info("CREATED")
		}
	case res.Conflict():
		outcome.Result = models.ResultSkipped
		outcome.Detail = "already exists"
		log.Warn("EXISTS: already present on target, skipping")
	default:
		outcome.Result = models.ResultFailed
		outcome.Detail = res.Err().Error()
		log.WithField("status", platform.StatusCode(res.Err())).Errorf("FAIL: %v", res.Err())
	}
	return r.finish(ctx, outcome)
}

func (r *Runner) finish(ctx context.Context, o models.Outcome) (models.Outcome, error) {
	o.RecordedAt = time.Now()
	r.outcomes = append(r.outcomes, o)
	if r.cfg.Observer != nil {
		r.cfg.Observer.Observe(o)
	}
	if r.cfg.Journal != nil {
		if err := r.cfg.Journal.RecordOutcome(ctx, r.cfg.RunID, o); err != nil {
			return o, errors.Wrap(err, "recording outcome")
		}
	}
	return o, nil
}
