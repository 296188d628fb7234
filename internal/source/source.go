// Package source reads the denormalized Nexus2 export rows from PostgreSQL.
package source

import (
	"context"
	"database/sql"
	"io"
	"iter"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // registers the "postgres" driver
	"github.com/sirupsen/logrus"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Scope is one read-only transaction over the source. Every stage opens its
// own scope and ends it with Commit or Rollback.
type Scope interface {
	Count(ctx context.Context, kind models.Kind) (int, error)
	Rows(ctx context.Context, kind models.Kind) iter.Seq2[models.Row, error]
	BackupIdentifiers(ctx context.Context) (models.RollbackPlan, error)
	Commit() error
	Rollback() error
}

// DB is the legacy export database.
type DB struct {
	db     *sqlx.DB
	schema string
	log    logrus.FieldLogger
}

// Open connects with the given driver ("pgx" or "postgres") and pings.
func Open(ctx context.Context, driver, dsn, schema string, log logrus.FieldLogger) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, &models.DataSourceError{Op: "connect", Err: err}
	}
	return New(db, schema, log), nil
}

// New wraps an existing handle. Tests pass a sqlmock-backed one.
func New(db *sqlx.DB, schema string, log logrus.FieldLogger) *DB {
	if schema == "" {
		schema = "public"
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &DB{db: db, schema: schema, log: log}
}

// Close releases the pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// BeginRead opens a read-only repeatable-read transaction so all queries in
// a stage see one snapshot.
func (d *DB) BeginRead(ctx context.Context) (Scope, error) {
	tx, err := d.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, &models.DataSourceError{Op: "begin read transaction", Err: err}
	}
	return &readScope{tx: tx, schema: d.schema, queries: fetchQueries(d.schema), log: d.log}, nil
}

type readScope struct {
	tx      *sqlx.Tx
	schema  string
	queries map[models.Kind]string
	log     logrus.FieldLogger
}

func (s *readScope) Count(ctx context.Context, kind models.Kind) (int, error) {
	var n int
	if err := s.tx.GetContext(ctx, &n, countQuery(s.schema, kind)); err != nil {
		return 0, &models.DataSourceError{Op: "count " + string(kind), Err: err}
	}
	return n, nil
}

// Rows yields one Row per source record. Iteration stops at the first
// error, which is always a *models.DataSourceError.
func (s *readScope) Rows(ctx context.Context, kind models.Kind) iter.Seq2[models.Row, error] {
	return func(yield func(models.Row, error) bool) {
		query, ok := s.queries[kind]
		if !ok {
			yield(nil, &models.DataSourceError{Op: "fetch", Err: errors.Errorf("unknown kind %q", kind)})
			return
		}
		rows, err := s.tx.QueryxContext(ctx, query)
		if err != nil {
			yield(nil, &models.DataSourceError{Op: "fetch " + string(kind), Err: err})
			return
		}
		defer rows.Close()

		for rows.Next() {
			row, err := scanRow(rows, kind)
			if err != nil {
				yield(nil, &models.DataSourceError{Op: "scan " + string(kind), Err: err})
				return
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, &models.DataSourceError{Op: "fetch " + string(kind), Err: err})
		}
	}
}

func scanRow(rows *sqlx.Rows, kind models.Kind) (models.Row, error) {
	switch kind {
	case models.KindPrivilege:
		var rec privilegeRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}
		return rec.toModel(), nil
	case models.KindRepository:
		var rec repositoryRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}
		return rec.toModel(), nil
	case models.KindRole:
		var rec roleRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}
		return rec.toModel(), nil
	case models.KindUser:
		var rec userRecord
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}
		return rec.toModel(), nil
	}
	return nil, errors.Errorf("unknown kind %q", kind)
}

type backupRecord struct {
	ID     string `db:"id"`
	Format string `db:"format"`
}

// BackupIdentifiers loads the identifiers recorded in the *_backup tables,
// keyed by kind, in table order.
func (s *readScope) BackupIdentifiers(ctx context.Context) (models.RollbackPlan, error) {
	plan := models.RollbackPlan{}
	for _, kind := range models.RollbackOrder {
		var recs []backupRecord
		if err := s.tx.SelectContext(ctx, &recs, backupQuery(s.schema, kind)); err != nil {
			return nil, &models.DataSourceError{Op: "read " + backupTables[kind], Err: err}
		}
		for _, r := range recs {
			if r.ID == "" {
				continue
			}
			plan[kind] = append(plan[kind], models.Identifier{Kind: kind, ID: r.ID, Format: r.Format})
		}
		s.log.WithField("kind", kind).Debugf("loaded %d backup identifiers", len(recs))
	}
	return plan, nil
}

func (s *readScope) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return &models.DataSourceError{Op: "commit", Err: err}
	}
	return nil
}

func (s *readScope) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &models.DataSourceError{Op: "rollback", Err: err}
	}
	return nil
}
