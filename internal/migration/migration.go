// Package migration runs the ordered Nexus2 to Nexus3 stages and their
// compensating rollback.
package migration

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/platform"
	"github.com/rflorenc/nexus-migration-workbench/internal/source"
)

// Source opens one consistent read scope per stage.
type Source interface {
	BeginRead(ctx context.Context) (source.Scope, error)
}

// Submitter is the remote API capability.
type Submitter interface {
	Submit(ctx context.Context, op platform.Operation, path string, payload any) platform.Result
}

// Journal keeps the local record of a run. Every outcome is recorded as it
// happens so entities created before an abort can still be rolled back.
type Journal interface {
	StartRun(ctx context.Context, runID string, dryRun bool) error
	RecordOutcome(ctx context.Context, runID string, o models.Outcome) error
	FinishRun(ctx context.Context, runID string, status string, stats []models.StageStatistics) error
}

// Observer receives every outcome, e.g. for metrics.
type Observer interface {
	Observe(o models.Outcome)
}

// Run statuses stored in the journal.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Report is the result of a migration run. It is always produced, also for
// aborted runs.
type Report struct {
	RunID       string                   `json:"run_id"`
	DryRun      bool                     `json:"dry_run"`
	StartedAt   time.Time                `json:"started_at"`
	FinishedAt  time.Time                `json:"finished_at"`
	Stages      []models.StageStatistics `json:"stages"`
	Outcomes    []models.Outcome         `json:"outcomes"`
	FailedStage models.Kind              `json:"failed_stage,omitempty"`
	Err         error                    `json:"-"`
}

// Succeeded reports whether every stage ran to completion.
func (r *Report) Succeeded() bool {
	return r.Err == nil
}

// Error returns the fatal error text, "" for a completed run.
func (r *Report) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Flagged returns the outcomes marked for manual review.
func (r *Report) Flagged() []models.Outcome {
	var out []models.Outcome
	for _, o := range r.Outcomes {
		if o.Flagged {
			out = append(out, o)
		}
	}
	return out
}

// IsStageFatal reports whether err aborted a run.
func IsStageFatal(err error) bool {
	var fatal *models.StageFatalError
	return errors.As(err, &fatal)
}
