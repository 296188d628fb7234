package migration

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/rflorenc/nexus-migration-workbench/internal/source"
)

// Check is one preflight verification.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// SchemaChecker is the part of the source database preflight needs.
type SchemaChecker interface {
	Ping(ctx context.Context) error
	ValidateSchema(ctx context.Context) (map[string][]string, error)
}

// VersionChecker is the part of the target preflight needs.
type VersionChecker interface {
	CheckVersion(ctx context.Context, min string) (string, error)
}

// Preflight verifies the source schema and the target version before any
// stage runs. All checks are attempted; the first failure is returned as
// the error.
func Preflight(ctx context.Context, db SchemaChecker, target VersionChecker, minVersion string) ([]Check, error) {
	var checks []Check
	var firstErr error
	fail := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if db != nil {
		if err := db.Ping(ctx); err != nil {
			checks = append(checks, Check{Name: "database connectivity", Detail: err.Error()})
			fail(err)
		} else {
			checks = append(checks, Check{Name: "database connectivity", Passed: true})
			missing, err := db.ValidateSchema(ctx)
			if err != nil && missing == nil {
				checks = append(checks, Check{Name: "database schema", Detail: err.Error()})
			}
			if missing != nil || err == nil {
				for _, table := range source.RequiredTables() {
					c := Check{Name: "table " + table, Passed: true}
					if cols, ok := missing[table]; ok {
						c.Passed = false
						c.Detail = "missing columns: " + strings.Join(cols, ", ")
					}
					checks = append(checks, c)
				}
			}
			if err != nil {
				fail(err)
			}
		}
	}

	if target != nil {
		version, err := target.CheckVersion(ctx, minVersion)
		c := Check{Name: "target API version >= " + minVersion, Passed: err == nil, Detail: version}
		if err != nil {
			c.Detail = err.Error()
			fail(errors.Wrap(err, "target check"))
		}
		checks = append(checks, c)
	}
	return checks, firstErr
}
