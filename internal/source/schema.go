package source

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/lib/pq"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

const columnsQuery = `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = ANY($2)`

type columnRecord struct {
	Table  string `db:"table_name"`
	Column string `db:"column_name"`
}

// RequiredTables returns the export tables a migration reads, sorted.
func RequiredTables() []string {
	out := make([]string, 0, len(requiredColumns))
	for t := range requiredColumns {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ValidateSchema checks that every required table exists in the configured
// schema with all of its required columns. The returned map lists missing
// columns per table (a missing table lists all of them).
func (d *DB) ValidateSchema(ctx context.Context) (map[string][]string, error) {
	tables := RequiredTables()
	var recs []columnRecord
	if err := d.db.SelectContext(ctx, &recs, columnsQuery, d.schema, pq.Array(tables)); err != nil {
		return nil, &models.DataSourceError{Op: "read information_schema", Err: err}
	}

	present := make(map[string]map[string]bool)
	for _, r := range recs {
		if present[r.Table] == nil {
			present[r.Table] = map[string]bool{}
		}
		present[r.Table][strings.ToLower(r.Column)] = true
	}

	missing := make(map[string][]string)
	for _, t := range tables {
		for _, c := range requiredColumns[t] {
			if !present[t][c] {
				missing[t] = append(missing[t], c)
			}
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(missing))
	for _, t := range tables {
		if cols, ok := missing[t]; ok {
			parts = append(parts, t+" ("+strings.Join(cols, ", ")+")")
		}
	}
	return missing, &models.DataSourceError{
		Op:  "validate schema",
		Err: errors.Errorf("missing required columns: %s", strings.Join(parts, "; ")),
	}
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return &models.DataSourceError{Op: "ping", Err: err}
	}
	return nil
}
