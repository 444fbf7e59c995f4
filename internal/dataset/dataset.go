// Package dataset holds the durable output of the pipeline: one row per
// scored (entity, period) document, persisted as a JSON file that is
// rewritten whole on every flush.
package dataset

import (
	"sort"
	"time"

	"callsense/internal/period"
)

// Category thresholds on the composite score.
const (
	positiveThreshold = 0.2
	negativeThreshold = -0.1
)

// Row is one scored document.
type Row struct {
	Entity     string    `json:"entity"`
	Sector     string    `json:"sector"`
	Year       int       `json:"year"`
	Month      string    `json:"month"`
	Composite  float64   `json:"composite"`
	Category   string    `json:"category"`
	Compound   float64   `json:"model_compound"`
	Positive   float64   `json:"model_positive"`
	Negative   float64   `json:"model_negative"`
	Neutral    float64   `json:"model_neutral"`
	Lexicon    float64   `json:"lexicon"`
	Guidance   float64   `json:"guidance"`
	Risk       float64   `json:"risk"`
	Sources    int       `json:"source_count"`
	Source     string    `json:"source"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Period returns the row's period value.
func (r Row) Period() period.Period {
	return period.Period{Month: r.Month, Year: r.Year}
}

// PeriodKey returns the ledger key for the row's period.
func (r Row) PeriodKey() string {
	return r.Period().Key()
}

// Categorize maps a composite score to its display category.
func Categorize(composite float64) string {
	switch {
	case composite > positiveThreshold:
		return "Positive"
	case composite < negativeThreshold:
		return "Negative"
	}
	return "Neutral"
}

// Merge folds incoming rows into the existing dataset. Existing rows sharing
// an (entity, period) key with an incoming row are replaced. Categories are
// recomputed for every row and the result is sorted by entity, then period
// newest first.
func Merge(existing, incoming []Row) []Row {
	type key struct {
		entity string
		period string
	}
	replaced := make(map[key]struct{}, len(incoming))
	for _, row := range incoming {
		replaced[key{row.Entity, row.PeriodKey()}] = struct{}{}
	}

	merged := make([]Row, 0, len(existing)+len(incoming))
	for _, row := range existing {
		if _, drop := replaced[key{row.Entity, row.PeriodKey()}]; drop {
			continue
		}
		merged = append(merged, row)
	}
	merged = append(merged, incoming...)

	for i := range merged {
		merged[i].Category = Categorize(merged[i].Composite)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Entity != merged[j].Entity {
			return merged[i].Entity < merged[j].Entity
		}
		return merged[i].Period().SortKey() > merged[j].Period().SortKey()
	})
	return merged
}

// LatestPerEntity returns each entity's most recent row. Input must be
// Merge-sorted.
func LatestPerEntity(rows []Row) []Row {
	var latest []Row
	seen := make(map[string]struct{})
	for _, row := range rows {
		if _, dup := seen[row.Entity]; dup {
			continue
		}
		seen[row.Entity] = struct{}{}
		latest = append(latest, row)
	}
	return latest
}

// SectorStats aggregates one sector for the summary feed.
type SectorStats struct {
	Rows         int     `json:"rows"`
	AvgComposite float64 `json:"avg_composite"`
	AvgRisk      float64 `json:"avg_risk"`
}

// SectorSummary aggregates rows per sector.
func SectorSummary(rows []Row) map[string]SectorStats {
	sums := make(map[string]*SectorStats)
	for _, row := range rows {
		sector := row.Sector
		if sector == "" {
			sector = "Unknown"
		}
		stats, ok := sums[sector]
		if !ok {
			stats = &SectorStats{}
			sums[sector] = stats
		}
		stats.Rows++
		stats.AvgComposite += row.Composite
		stats.AvgRisk += row.Risk
	}

	out := make(map[string]SectorStats, len(sums))
	for sector, stats := range sums {
		n := float64(stats.Rows)
		out[sector] = SectorStats{
			Rows:         stats.Rows,
			AvgComposite: stats.AvgComposite / n,
			AvgRisk:      stats.AvgRisk / n,
		}
	}
	return out
}
