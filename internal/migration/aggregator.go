package migration

import (
	"sync"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Aggregator accumulates per-kind tallies. Stage runs record into their own
// aggregator and merge into the run's only after the read scope commits.
type Aggregator struct {
	mu    sync.Mutex
	stats map[models.Kind]*models.StageStatistics
}

func NewAggregator() *Aggregator {
	return &Aggregator{stats: make(map[models.Kind]*models.StageStatistics)}
}

func (a *Aggregator) entry(kind models.Kind) *models.StageStatistics {
	s, ok := a.stats[kind]
	if !ok {
		s = &models.StageStatistics{Kind: kind}
		a.stats[kind] = s
	}
	return s
}

// Record counts one outcome. Total always moves with exactly one bucket.
func (a *Aggregator) Record(o models.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.entry(o.Kind)
	s.Total++
	switch o.Result {
	case models.ResultSuccess:
		s.Success++
	case models.ResultFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}

// Merge adds another aggregator's tallies into this one.
func (a *Aggregator) Merge(other *Aggregator) {
	snap := other.Snapshot(nil)
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range snap {
		dst := a.entry(s.Kind)
		dst.Total += s.Total
		dst.Success += s.Success
		dst.Failed += s.Failed
		dst.Skipped += s.Skipped
	}
}

// Stage returns the tallies for one kind.
func (a *Aggregator) Stage(kind models.Kind) models.StageStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.stats[kind]; ok {
		return *s
	}
	return models.StageStatistics{Kind: kind}
}

// Snapshot returns a copy of the tallies in the given kind order, with zero
// entries for kinds never recorded. A nil order returns only recorded kinds,
// in migration order.
func (a *Aggregator) Snapshot(order []models.Kind) []models.StageStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	if order == nil {
		var out []models.StageStatistics
		for _, k := range models.MigrationOrder {
			if s, ok := a.stats[k]; ok {
				out = append(out, *s)
			}
		}
		return out
	}
	out := make([]models.StageStatistics, 0, len(order))
	for _, k := range order {
		if s, ok := a.stats[k]; ok {
			out = append(out, *s)
		} else {
			out = append(out, models.StageStatistics{Kind: k})
		}
	}
	return out
}
