package migration

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/mapping"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/platform"
)

// Ledger is the local bookkeeping a rollback updates. MarkRolledBack must
// apply all ids in one transaction.
type Ledger interface {
	MarkRolledBack(ctx context.Context, runID string, ids []models.Identifier) error
}

// RollbackConfig wires a RollbackRunner. Ledger is optional (backup-table
// rollbacks keep no local record).
type RollbackConfig struct {
	Target   Submitter
	Ledger   Ledger
	Observer Observer
	Log      logrus.FieldLogger
	RunID    string
}

// RollbackReport summarizes a rollback. Stats use Success for deleted (or
// already gone) entities.
type RollbackReport struct {
	RunID      string                   `json:"run_id,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Stats      []models.StageStatistics `json:"stats"`
	Items      []models.Outcome         `json:"items"`
}

// Failed returns the number of deletes that did not succeed.
func (r *RollbackReport) Failed() int {
	n := 0
	for _, s := range r.Stats {
		n += s.Failed
	}
	return n
}

// RollbackRunner deletes previously created entities in reverse dependency
// order. Each delete is isolated; failures are logged and the rest continue.
type RollbackRunner struct {
	cfg RollbackConfig
	log logrus.FieldLogger
}

func NewRollbackRunner(cfg RollbackConfig) *RollbackRunner {
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if cfg.RunID != "" {
		log = log.WithField("run", cfg.RunID)
	}
	return &RollbackRunner{cfg: cfg, log: log}
}

// Run issues the deletes for plan. The returned error is only set when the
// context ends early or the local bookkeeping fails; per-item failures are
// in the report.
func (r *RollbackRunner) Run(ctx context.Context, plan models.RollbackPlan) (*RollbackReport, error) {
	report := &RollbackReport{RunID: r.cfg.RunID, StartedAt: time.Now()}
	agg := NewAggregator()
	var deleted []models.Identifier

	finish := func(err error) (*RollbackReport, error) {
		report.Stats = agg.Snapshot(models.RollbackOrder)
		report.FinishedAt = time.Now()
		return report, err
	}

	for _, kind := range models.RollbackOrder {
		ids := plan[kind]
		if len(ids) == 0 {
			continue
		}
		if ctx.Err() != nil {
			r.log.Warn("Rollback cancelled")
			return finish(ctx.Err())
		}
		r.log.Infof("Rolling back %s...", kind)
		for _, id := range ids {
			if id.Kind == "" {
				id.Kind = kind
			}
			o := r.deleteOne(ctx, id)
			agg.Record(o)
			report.Items = append(report.Items, o)
			if r.cfg.Observer != nil {
				r.cfg.Observer.Observe(o)
			}
			if o.Result == models.ResultSuccess {
				deleted = append(deleted, id)
			}
		}
	}

	if r.cfg.Ledger != nil && len(deleted) > 0 {
		if err := r.cfg.Ledger.MarkRolledBack(context.WithoutCancel(ctx), r.cfg.RunID, deleted); err != nil {
			return finish(errors.Wrap(err, "updating rollback bookkeeping"))
		}
	}
	return finish(nil)
}

func (r *RollbackRunner) deleteOne(ctx context.Context, id models.Identifier) models.Outcome {
	o := models.Outcome{Kind: id.Kind, Identifier: id.ID, Format: id.Format}
	log := r.log.WithFields(logrus.Fields{"stage": id.Kind, "id": id.ID})

	path, err := mapping.DeletePath(id)
	if err != nil {
		o.Result = models.ResultFailed
		o.Detail = err.Error()
		o.RecordedAt = time.Now()
		log.Errorf("FAIL: %v", err)
		return o
	}

	res := r.cfg.Target.Submit(ctx, platform.OpDelete, path, nil)
	switch {
	case res.Gone:
		o.Result = models.ResultSuccess
		o.Detail = "already gone"
		log.Info("DELETED (already gone)")
	case res.Success():
		o.Result = models.ResultSuccess
		log.Info("DELETED")
	default:
		o.Result = models.ResultFailed
		o.Detail = res.Err().Error()
		log.WithField("status", platform.StatusCode(res.Err())).Errorf("FAIL: %v", res.Err())
	}
	o.RecordedAt = time.Now()
	return o
}
