// Package workbench wires configuration, the source database, the Nexus3
// target and the local journal into the operations exposed by the CLI and
// the HTTP control surface.
package workbench

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/config"
	"github.com/rflorenc/nexus-migration-workbench/internal/journal"
	"github.com/rflorenc/nexus-migration-workbench/internal/mapping"
	"github.com/rflorenc/nexus-migration-workbench/internal/migration"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
	"github.com/rflorenc/nexus-migration-workbench/internal/platform"
	"github.com/rflorenc/nexus-migration-workbench/internal/report"
	"github.com/rflorenc/nexus-migration-workbench/internal/source"
)

// SourceDB is what the workbench needs from the export database.
type SourceDB interface {
	migration.Source
	migration.SchemaChecker
	Close() error
}

// Target is what the workbench needs from Nexus3.
type Target interface {
	migration.Submitter
	migration.VersionChecker
}

// Workbench holds the validated configuration and the long-lived pieces
// (journal, metrics). Source and target connections are opened per call.
type Workbench struct {
	cfg     config.Config
	log     *logrus.Logger
	journal *journal.Store
	metrics *report.Metrics

	openSource func(ctx context.Context, log logrus.FieldLogger) (SourceDB, error)
	openTarget func(log logrus.FieldLogger) (Target, error)
}

// Open validates cfg and opens the journal.
func Open(cfg config.Config, log *logrus.Logger) (*Workbench, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := journal.Open(cfg.Settings.JournalPath)
	if err != nil {
		return nil, err
	}
	w := &Workbench{cfg: cfg, log: log, journal: store, metrics: report.NewMetrics()}
	w.openSource = func(ctx context.Context, log logrus.FieldLogger) (SourceDB, error) {
		return source.Open(ctx, cfg.DB.Driver, cfg.DB.DSN(), cfg.DB.Schema, log)
	}
	w.openTarget = func(log logrus.FieldLogger) (Target, error) {
		return platform.NewTarget(cfg.Connection(), log)
	}
	return w, nil
}

func (w *Workbench) Close() error {
	return w.journal.Close()
}

func (w *Workbench) Config() config.Config    { return w.cfg }
func (w *Workbench) Metrics() *report.Metrics { return w.metrics }
func (w *Workbench) Journal() *journal.Store  { return w.journal }
func (w *Workbench) Logger() *logrus.Logger   { return w.log }

func (w *Workbench) logger(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	return w.log
}

// MigrateOptions select what a migration run does.
type MigrateOptions struct {
	RunID         string
	DryRun        bool
	Kinds         []models.Kind
	SkipPreflight bool
	// Log overrides the workbench logger, e.g. to mirror into a job.
	Log logrus.FieldLogger
}

// Migrate runs preflight and then every selected stage. The report is nil
// only when the run could not start; preflight results are always returned.
func (w *Workbench) Migrate(ctx context.Context, opts MigrateOptions) (*migration.Report, []migration.Check, error) {
	log := w.logger(opts.Log)
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	db, err := w.openSource(ctx, log)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	target, err := w.openTarget(log)
	if err != nil {
		return nil, nil, err
	}

	var checks []migration.Check
	if !opts.SkipPreflight {
		checks, err = migration.Preflight(ctx, db, target, platform.MinimumVersion)
		if err != nil {
			return nil, checks, errors.Wrap(err, "preflight failed")
		}
	}

	mapper := mapping.New(mapping.Options{
		BlobStore:       w.cfg.Settings.BlobStore,
		CacheTTL:        w.cfg.Settings.CacheTTL,
		DefaultPassword: w.cfg.Settings.DefaultPassword,
		Log:             log,
	})
	runner := migration.NewRunner(migration.RunnerConfig{
		Source:   db,
		Mapper:   mapper,
		Target:   target,
		Journal:  w.journal,
		Observer: w.metrics,
		Log:      log,
		RunID:    opts.RunID,
		DryRun:   opts.DryRun,
		Kinds:    opts.Kinds,
	})
	rep, runErr := runner.Run(ctx)

	status := migration.RunCompleted
	if runErr != nil {
		status = migration.RunFailed
	}
	w.metrics.RunFinished(status)
	w.writeMetrics(log)
	return rep, checks, runErr
}

// Verify runs the preflight checks only.
func (w *Workbench) Verify(ctx context.Context, l logrus.FieldLogger) ([]migration.Check, error) {
	log := w.logger(l)
	db, err := w.openSource(ctx, log)
	if err != nil {
		return []migration.Check{{Name: "database connectivity", Detail: err.Error()}}, err
	}
	defer db.Close()
	target, err := w.openTarget(log)
	if err != nil {
		return nil, err
	}
	return migration.Preflight(ctx, db, target, platform.MinimumVersion)
}

// RollbackOptions pick the identifier source. With FromBackup the
// migration_nexus2_*_backup tables are read; otherwise the journal entries
// of RunID (or of the latest run when empty).
type RollbackOptions struct {
	RunID      string
	FromBackup bool
	Log        logrus.FieldLogger
}

// Rollback deletes previously created entities.
func (w *Workbench) Rollback(ctx context.Context, opts RollbackOptions) (*migration.RollbackReport, error) {
	log := w.logger(opts.Log)

	var (
		plan   models.RollbackPlan
		ledger migration.Ledger
		err    error
	)
	if opts.FromBackup {
		plan, err = w.backupPlan(ctx, log)
	} else {
		if opts.RunID == "" {
			latest, lerr := w.journal.LatestRun(ctx)
			if lerr != nil {
				return nil, errors.Wrap(lerr, "no run to roll back")
			}
			opts.RunID = latest.ID
		}
		plan, err = w.journal.Plan(ctx, opts.RunID)
		ledger = w.journal
	}
	if err != nil {
		return nil, err
	}
	log.Infof("Rolling back %d entities", plan.Len())

	target, err := w.openTarget(log)
	if err != nil {
		return nil, err
	}
	runner := migration.NewRollbackRunner(migration.RollbackConfig{
		Target: target,
		Ledger: ledger,
		Log:    log,
		RunID:  opts.RunID,
	})
	return runner.Run(ctx, plan)
}

func (w *Workbench) backupPlan(ctx context.Context, log logrus.FieldLogger) (models.RollbackPlan, error) {
	db, err := w.openSource(ctx, log)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	scope, err := db.BeginRead(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := scope.BackupIdentifiers(ctx)
	if err != nil {
		_ = scope.Rollback()
		return nil, err
	}
	return plan, scope.Commit()
}

func (w *Workbench) writeMetrics(log logrus.FieldLogger) {
	path := w.cfg.Settings.MetricsFile
	if path == "" {
		return
	}
	if err := w.metrics.WriteTextfile(path); err != nil {
		log.Warnf("writing metrics file: %v", err)
		return
	}
	log.Debugf("metrics written to %s", path)
}
