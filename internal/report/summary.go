// Package report renders run summaries for humans and exports run counters
// for Prometheus.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rflorenc/nexus-migration-workbench/internal/migration"
	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func statsTable(w io.Writer, stats []models.StageStatistics, successLabel string) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Stage", "Total", successLabel, "Failed", "Skipped"})
	var total models.StageStatistics
	for _, s := range stats {
		tw.AppendRow(table.Row{s.Kind.Label(), s.Total, s.Success, s.Failed, s.Skipped})
		total.Total += s.Total
		total.Success += s.Success
		total.Failed += s.Failed
		total.Skipped += s.Skipped
	}
	tw.AppendFooter(table.Row{"Total", total.Total, total.Success, total.Failed, total.Skipped})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	tw.Render()
}

// RenderSummary writes the end-of-run report. It is meant to be called for
// aborted runs too, in which case the failed stage and cause are printed.
func RenderSummary(w io.Writer, r *migration.Report) {
	mode := "migration"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "Run %s (%s), %s\n", r.RunID, mode, duration(r.StartedAt, r.FinishedAt))
	statsTable(w, r.Stages, "Success")

	if flagged := r.Flagged(); len(flagged) > 0 {
		fmt.Fprintln(w, "Flagged for review:")
		tw := newTable(w)
		tw.AppendHeader(table.Row{"Stage", "Identifier", "Detail"})
		for _, o := range flagged {
			tw.AppendRow(table.Row{o.Kind.Label(), o.Identifier, o.Detail})
		}
		tw.Render()
	}

	if r.Succeeded() {
		fmt.Fprintln(w, "Result: COMPLETED")
		return
	}
	if r.FailedStage != "" {
		fmt.Fprintf(w, "Result: FAILED in %s stage: %s\n", r.FailedStage.Label(), r.Error())
		return
	}
	fmt.Fprintf(w, "Result: FAILED: %s\n", r.Error())
}

// RenderFailures lists the rows that failed, one per line.
func RenderFailures(w io.Writer, outcomes []models.Outcome) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Stage", "Identifier", "Detail"})
	n := 0
	for _, o := range outcomes {
		if o.Result != models.ResultFailed {
			continue
		}
		tw.AppendRow(table.Row{o.Kind.Label(), o.Identifier, o.Detail})
		n++
	}
	if n == 0 {
		return
	}
	tw.Render()
}

// RenderRollback writes the rollback summary and every delete that failed.
func RenderRollback(w io.Writer, r *migration.RollbackReport) {
	if r.RunID != "" {
		fmt.Fprintf(w, "Rollback of run %s, %s\n", r.RunID, duration(r.StartedAt, r.FinishedAt))
	} else {
		fmt.Fprintf(w, "Rollback, %s\n", duration(r.StartedAt, r.FinishedAt))
	}
	statsTable(w, r.Stats, "Deleted")
	RenderFailures(w, r.Items)
	if r.Failed() > 0 {
		fmt.Fprintf(w, "Result: %d deletes failed\n", r.Failed())
		return
	}
	fmt.Fprintln(w, "Result: COMPLETED")
}

// RenderChecks writes preflight results as a PASS/FAIL table and reports
// whether all of them passed.
func RenderChecks(w io.Writer, checks []migration.Check) bool {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
	ok := true
	for _, c := range checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
			ok = false
		}
		tw.AppendRow(table.Row{c.Name, status, c.Detail})
	}
	tw.Render()
	return ok
}

// RenderRuns lists journaled runs.
func RenderRuns(w io.Writer, runs []RunLine) {
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Run", "Status", "Dry run", "Started"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.ID, r.Status, r.DryRun, r.StartedAt.Local().Format(time.DateTime)})
	}
	tw.Render()
}

// RunLine is the subset of a journaled run shown by RenderRuns.
type RunLine struct {
	ID        string
	Status    string
	DryRun    bool
	StartedAt time.Time
}

func duration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return "not finished"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}
