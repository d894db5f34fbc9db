package analytics

import "time"

// DateRange is an inclusive calendar-date interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the inclusive day span of the range, never less than 1.
func (r DateRange) Days() int {
	days := int(r.End.Sub(r.Start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Contains reports whether d falls within the range, inclusive on both ends.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Constraints are the three user-adjustable filter inputs. Both selection
// slices are explicit: an empty slice matches nothing, there is no
// nil-means-all shorthand. Values absent from the dataset are legal and
// simply match nothing.
type Constraints struct {
	Range    DateRange `json:"date_range"`
	Types    []string  `json:"intervention_types"`
	Segments []string  `json:"customer_segments"`
}

func (c Constraints) clone() Constraints {
	c.Types = append([]string(nil), c.Types...)
	c.Segments = append([]string(nil), c.Segments...)
	return c
}

// WorkingRow is one filtered intervention with customer attributes joined on.
// The customer fields are nil when the customer_id had no match (join miss).
type WorkingRow struct {
	CustomerID string
	Date       time.Time
	Type       string
	Savings    float64
	Confidence float64

	Segment           *string
	MonthlyBill       *float64
	SatisfactionScore *int
}

// WorkingSet is the filtered, joined subset of interventions currently in
// scope. Row order carries no meaning; time-series aggregations sort
// internally.
type WorkingSet struct {
	Rows []WorkingRow
}

// Len returns the number of rows in the working set.
func (w WorkingSet) Len() int { return len(w.Rows) }

// WeeklyPoint is one week of summed savings, keyed by the Monday of the week.
type WeeklyPoint struct {
	WeekStart time.Time `json:"week_start"`
	Savings   float64   `json:"savings"`
}

// PortfolioEntry is the per-intervention-type rollup.
type PortfolioEntry struct {
	Type          string  `json:"intervention_type"`
	TotalSavings  float64 `json:"total_savings"`
	AvgConfidence float64 `json:"avg_confidence"`
	Interventions int     `json:"interventions"`
}

// SegmentAdoption is the per-segment rollup, with the denominator taken from
// the full unfiltered customer table.
type SegmentAdoption struct {
	Segment         string  `json:"customer_segment"`
	ActiveCustomers int     `json:"active_customers"`
	TotalCustomers  int     `json:"total_customers"`
	TotalSavings    float64 `json:"total_savings"`
	AdoptionRate    float64 `json:"adoption_rate"`
}

// MonthlyTrend is the per-(month, type) rollup, keyed by the first of the month.
type MonthlyTrend struct {
	Month         time.Time `json:"month"`
	Type          string    `json:"intervention_type"`
	Savings       float64   `json:"savings"`
	AvgConfidence float64   `json:"avg_confidence"`
}

// CumulativePoint is one row of the running savings total, in date order.
type CumulativePoint struct {
	Date       time.Time `json:"date"`
	Cumulative float64   `json:"cumulative_savings"`
}

// FinancialSummary bundles the derived financial figures.
type FinancialSummary struct {
	TotalSavings              float64 `json:"total_savings"`
	TotalInterventions        int     `json:"total_interventions"`
	AvgSavingsPerIntervention float64 `json:"avg_savings_per_intervention"`
	ProjectedAnnualSavings    float64 `json:"projected_annual_savings"`
}

// Views is one immutable round of all aggregate views, derived from a single
// working set. A Views value is never mutated after Compute returns it.
type Views struct {
	TotalSavings       float64           `json:"total_savings"`
	TotalInterventions int               `json:"total_interventions"`
	AvgConfidence      float64           `json:"avg_confidence"`
	UniqueCustomers    int               `json:"unique_customers"`
	WeeklySavings      []WeeklyPoint     `json:"weekly_savings_trend"`
	Portfolio          []PortfolioEntry  `json:"intervention_portfolio"`
	SegmentAdoption    []SegmentAdoption `json:"segment_adoption"`
	MonthlyTrends      []MonthlyTrend    `json:"monthly_trends_by_type"`
	CumulativeSavings  []CumulativePoint `json:"cumulative_savings"`
	Financial          FinancialSummary  `json:"financial_summary"`
	WorkingSetSize     int               `json:"working_set_size"`
	ConstraintVersion  uint64            `json:"constraint_version"`
	DatasetVersion     int64             `json:"dataset_version"`
}
