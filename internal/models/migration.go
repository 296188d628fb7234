package models

import "time"

// Result is the per-row verdict recorded by a stage.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
	ResultSkipped Result = "skipped"
)

// Outcome records what happened to a single row during a stage run.
type Outcome struct {
	Kind       Kind      `json:"kind"`
	Identifier string    `json:"identifier"`
	Result     Result    `json:"result"`
	Detail     string    `json:"detail,omitempty"`
	Format     string    `json:"format,omitempty"` // repositories only
	Flagged    bool      `json:"flagged,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StageStatistics holds the per-kind tallies. Total always equals
// Success + Failed + Skipped.
type StageStatistics struct {
	Kind    Kind `json:"kind"`
	Total   int  `json:"total"`
	Success int  `json:"success"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
}

// Identifier is a reference to an entity previously created on the target,
// as needed to delete it again.
type Identifier struct {
	Kind   Kind   `json:"kind"`
	ID     string `json:"id"`
	Format string `json:"format,omitempty"`
}

// RollbackPlan lists identifiers per kind in the order they were recorded.
type RollbackPlan map[Kind][]Identifier

// Len returns the number of identifiers across all kinds.
func (p RollbackPlan) Len() int {
	n := 0
	for _, ids := range p {
		n += len(ids)
	}
	return n
}
