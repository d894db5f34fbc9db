package analytics

import (
	"sort"
	"time"

	"pulse_analytics/internal/dataset"
)

// All aggregations are pure functions of the working set (segment adoption
// additionally reads the unfiltered customer table). Every one of them
// tolerates an empty working set and returns its neutral value.

// TotalSavings sums savings over the working set. 0 for empty input.
func TotalSavings(ws WorkingSet) float64 {
	var total float64
	for _, row := range ws.Rows {
		total += row.Savings
	}
	return total
}

// TotalInterventions is the working set row count.
func TotalInterventions(ws WorkingSet) int {
	return len(ws.Rows)
}

// AvgConfidence is the mean confidence score, 0 for empty input.
func AvgConfidence(ws WorkingSet) float64 {
	if len(ws.Rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range ws.Rows {
		sum += row.Confidence
	}
	return sum / float64(len(ws.Rows))
}

// UniqueCustomers counts distinct customer ids in the working set.
func UniqueCustomers(ws WorkingSet) int {
	seen := make(map[string]bool, len(ws.Rows))
	for _, row := range ws.Rows {
		seen[row.CustomerID] = true
	}
	return len(seen)
}

// WeeklySavingsTrend sums savings per calendar week (Monday start), sorted
// ascending by week. Weeks with no interventions do not appear.
func WeeklySavingsTrend(ws WorkingSet) []WeeklyPoint {
	buckets := make(map[time.Time]float64)
	for _, row := range ws.Rows {
		buckets[weekStart(row.Date)] += row.Savings
	}
	out := make([]WeeklyPoint, 0, len(buckets))
	for week, savings := range buckets {
		out = append(out, WeeklyPoint{WeekStart: week, Savings: savings})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out
}

// InterventionPortfolio rolls up savings and mean confidence per intervention
// type, one entry per type present in the working set, sorted by type.
func InterventionPortfolio(ws WorkingSet) []PortfolioEntry {
	type acc struct {
		savings    float64
		confidence float64
		count      int
	}
	buckets := make(map[string]*acc)
	for _, row := range ws.Rows {
		a := buckets[row.Type]
		if a == nil {
			a = &acc{}
			buckets[row.Type] = a
		}
		a.savings += row.Savings
		a.confidence += row.Confidence
		a.count++
	}
	out := make([]PortfolioEntry, 0, len(buckets))
	for typ, a := range buckets {
		out = append(out, PortfolioEntry{
			Type:          typ,
			TotalSavings:  a.savings,
			AvgConfidence: a.confidence / float64(a.count),
			Interventions: a.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// SegmentAdoptionRates rolls up distinct customers and savings per segment and
// divides by each segment's total population from the full customer table.
// Segments appearing here always have at least one matched customer, so the
// denominator is never zero.
func SegmentAdoptionRates(ws WorkingSet, snap *dataset.Snapshot) []SegmentAdoption {
	type acc struct {
		customers map[string]bool
		savings   float64
	}
	buckets := make(map[string]*acc)
	for _, row := range ws.Rows {
		if row.Segment == nil {
			continue
		}
		a := buckets[*row.Segment]
		if a == nil {
			a = &acc{customers: make(map[string]bool)}
			buckets[*row.Segment] = a
		}
		a.customers[row.CustomerID] = true
		a.savings += row.Savings
	}
	sizes := snap.SegmentSizes()
	out := make([]SegmentAdoption, 0, len(buckets))
	for segment, a := range buckets {
		total := sizes[segment]
		entry := SegmentAdoption{
			Segment:         segment,
			ActiveCustomers: len(a.customers),
			TotalCustomers:  total,
			TotalSavings:    a.savings,
		}
		if total > 0 {
			entry.AdoptionRate = float64(len(a.customers)) / float64(total)
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// MonthlyTrendsByType rolls up savings and mean confidence per calendar month
// and intervention type, sorted by month then type.
func MonthlyTrendsByType(ws WorkingSet) []MonthlyTrend {
	type key struct {
		month time.Time
		typ   string
	}
	type acc struct {
		savings    float64
		confidence float64
		count      int
	}
	buckets := make(map[key]*acc)
	for _, row := range ws.Rows {
		k := key{month: monthStart(row.Date), typ: row.Type}
		a := buckets[k]
		if a == nil {
			a = &acc{}
			buckets[k] = a
		}
		a.savings += row.Savings
		a.confidence += row.Confidence
		a.count++
	}
	out := make([]MonthlyTrend, 0, len(buckets))
	for k, a := range buckets {
		out = append(out, MonthlyTrend{
			Month:         k.month,
			Type:          k.typ,
			Savings:       a.savings,
			AvgConfidence: a.confidence / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// CumulativeSavings emits the running savings total in date order, ties kept
// in input order. The final value equals TotalSavings for the same set.
func CumulativeSavings(ws WorkingSet) []CumulativePoint {
	rows := append([]WorkingRow(nil), ws.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	out := make([]CumulativePoint, 0, len(rows))
	var running float64
	for _, row := range rows {
		running += row.Savings
		out = append(out, CumulativePoint{Date: row.Date, Cumulative: running})
	}
	return out
}

// Financials derives the summary figures, projecting annual savings from the
// daily average over the inclusive day span of the selected range.
func Financials(ws WorkingSet, r DateRange) FinancialSummary {
	total := TotalSavings(ws)
	count := TotalInterventions(ws)
	summary := FinancialSummary{
		TotalSavings:       total,
		TotalInterventions: count,
	}
	if count > 0 {
		summary.AvgSavingsPerIntervention = total / float64(count)
	}
	summary.ProjectedAnnualSavings = total / float64(r.Days()) * 365
	return summary
}

// Compute runs every aggregation against one working set and bundles the
// results into a single immutable Views value.
func Compute(ws WorkingSet, snap *dataset.Snapshot, c Constraints) Views {
	return Views{
		TotalSavings:       TotalSavings(ws),
		TotalInterventions: TotalInterventions(ws),
		AvgConfidence:      AvgConfidence(ws),
		UniqueCustomers:    UniqueCustomers(ws),
		WeeklySavings:      WeeklySavingsTrend(ws),
		Portfolio:          InterventionPortfolio(ws),
		SegmentAdoption:    SegmentAdoptionRates(ws, snap),
		MonthlyTrends:      MonthlyTrendsByType(ws),
		CumulativeSavings:  CumulativeSavings(ws),
		Financial:          Financials(ws, c.Range),
		WorkingSetSize:     ws.Len(),
		DatasetVersion:     snap.Version,
	}
}

// weekStart truncates a date to the Monday of its calendar week.
func weekStart(d time.Time) time.Time {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// monthStart truncates a date to the first of its month.
func monthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}
