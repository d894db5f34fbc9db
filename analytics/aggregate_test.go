package analytics

import (
	"math"
	"testing"
	"time"

	"pulse_analytics/internal/dataset"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Scenario: one Power User customer with two Billing interventions a week
// apart, full constraints.
func scenarioWorkingSet(t *testing.T) (WorkingSet, *dataset.Snapshot, Constraints) {
	t.Helper()
	customers := []dataset.Customer{
		{CustomerID: "C1", Segment: "Power User", MonthlyBill: 80, SatisfactionScore: 9},
	}
	interventions := []dataset.Intervention{
		{CustomerID: "C1", Date: day(2024, 1, 1), Type: "Billing", Savings: 100, Confidence: 0.9},
		{CustomerID: "C1", Date: day(2024, 1, 8), Type: "Billing", Savings: 50, Confidence: 0.8},
	}
	snap := dataset.New(customers, interventions, nil, nil, 1, time.Now())
	c := allConstraints(snap)
	return BuildWorkingSet(snap, c), snap, c
}

func TestScenarioKPIs(t *testing.T) {
	ws, _, _ := scenarioWorkingSet(t)
	if got := TotalSavings(ws); !approx(got, 150) {
		t.Fatalf("total savings %v, want 150", got)
	}
	if got := TotalInterventions(ws); got != 2 {
		t.Fatalf("total interventions %d, want 2", got)
	}
	if got := UniqueCustomers(ws); got != 1 {
		t.Fatalf("unique customers %d, want 1", got)
	}
	if got := AvgConfidence(ws); !approx(got, 0.85) {
		t.Fatalf("avg confidence %v, want 0.85", got)
	}
}

func TestWeeklySavingsTrend(t *testing.T) {
	ws, _, _ := scenarioWorkingSet(t)
	trend := WeeklySavingsTrend(ws)
	if len(trend) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(trend))
	}
	// Both dates are Mondays, so each is its own week start.
	if !trend[0].WeekStart.Equal(day(2024, 1, 1)) || !approx(trend[0].Savings, 100) {
		t.Fatalf("week 1 = (%v, %v)", trend[0].WeekStart, trend[0].Savings)
	}
	if !trend[1].WeekStart.Equal(day(2024, 1, 8)) || !approx(trend[1].Savings, 50) {
		t.Fatalf("week 2 = (%v, %v)", trend[1].WeekStart, trend[1].Savings)
	}
}

func TestWeeklyBucketsUseMondayStart(t *testing.T) {
	ws := WorkingSet{Rows: []WorkingRow{
		{CustomerID: "C1", Date: day(2024, 1, 3), Savings: 10}, // Wednesday
		{CustomerID: "C1", Date: day(2024, 1, 7), Savings: 5},  // Sunday, same week
	}}
	trend := WeeklySavingsTrend(ws)
	if len(trend) != 1 {
		t.Fatalf("expected a single week, got %d", len(trend))
	}
	if !trend[0].WeekStart.Equal(day(2024, 1, 1)) {
		t.Fatalf("week start %v, want Monday 2024-01-01", trend[0].WeekStart)
	}
	if !approx(trend[0].Savings, 15) {
		t.Fatalf("week savings %v, want 15", trend[0].Savings)
	}
}

func TestCumulativeSavingsMatchesTotal(t *testing.T) {
	ws, _, _ := scenarioWorkingSet(t)
	series := CumulativeSavings(ws)
	if len(series) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series))
	}
	if !series[0].Date.Equal(day(2024, 1, 1)) || !approx(series[0].Cumulative, 100) {
		t.Fatalf("point 1 = (%v, %v)", series[0].Date, series[0].Cumulative)
	}
	if !series[1].Date.Equal(day(2024, 1, 8)) || !approx(series[1].Cumulative, 150) {
		t.Fatalf("point 2 = (%v, %v)", series[1].Date, series[1].Cumulative)
	}
	if !approx(series[len(series)-1].Cumulative, TotalSavings(ws)) {
		t.Fatal("final cumulative value must equal total savings")
	}
}

func TestCumulativeSavingsStableOnTies(t *testing.T) {
	ws := WorkingSet{Rows: []WorkingRow{
		{CustomerID: "A", Date: day(2024, 3, 1), Savings: 1},
		{CustomerID: "B", Date: day(2024, 3, 1), Savings: 2},
		{CustomerID: "C", Date: day(2024, 2, 1), Savings: 4},
	}}
	series := CumulativeSavings(ws)
	want := []float64{4, 5, 7}
	for i, point := range series {
		if !approx(point.Cumulative, want[i]) {
			t.Fatalf("point %d cumulative %v, want %v", i, point.Cumulative, want[i])
		}
	}
}

func TestInterventionPortfolio(t *testing.T) {
	ws := WorkingSet{Rows: []WorkingRow{
		{Type: "Billing", Savings: 100, Confidence: 0.9},
		{Type: "Billing", Savings: 50, Confidence: 0.7},
		{Type: "Technical", Savings: 30, Confidence: 0.6},
	}}
	portfolio := InterventionPortfolio(ws)
	if len(portfolio) != 2 {
		t.Fatalf("expected 2 types, got %d", len(portfolio))
	}
	if portfolio[0].Type != "Billing" || !approx(portfolio[0].TotalSavings, 150) || !approx(portfolio[0].AvgConfidence, 0.8) {
		t.Fatalf("billing entry = %+v", portfolio[0])
	}
	if portfolio[1].Type != "Technical" || portfolio[1].Interventions != 1 {
		t.Fatalf("technical entry = %+v", portfolio[1])
	}
}

func TestSegmentAdoptionRates(t *testing.T) {
	customers := []dataset.Customer{
		{CustomerID: "C1", Segment: "Power User"},
		{CustomerID: "C2", Segment: "Power User"},
		{CustomerID: "C3", Segment: "Power User"},
		{CustomerID: "C4", Segment: "Budget Conscious"},
	}
	snap := dataset.New(customers, nil, nil, nil, 1, time.Now())
	seg := "Power User"
	ws := WorkingSet{Rows: []WorkingRow{
		{CustomerID: "C1", Segment: &seg, Savings: 10},
		{CustomerID: "C1", Segment: &seg, Savings: 20},
		{CustomerID: "C2", Segment: &seg, Savings: 5},
	}}
	adoption := SegmentAdoptionRates(ws, snap)
	if len(adoption) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(adoption))
	}
	got := adoption[0]
	if got.ActiveCustomers != 2 || got.TotalCustomers != 3 {
		t.Fatalf("adoption counts = %+v", got)
	}
	if !approx(got.AdoptionRate, 2.0/3.0) {
		t.Fatalf("adoption rate %v, want 2/3", got.AdoptionRate)
	}
	if got.AdoptionRate < 0 || got.AdoptionRate > 1 {
		t.Fatal("adoption rate out of [0,1]")
	}
	if !approx(got.TotalSavings, 35) {
		t.Fatalf("segment savings %v, want 35", got.TotalSavings)
	}
}

func TestMonthlyTrendsByType(t *testing.T) {
	ws := WorkingSet{Rows: []WorkingRow{
		{Type: "Billing", Date: day(2024, 1, 5), Savings: 10, Confidence: 0.9},
		{Type: "Billing", Date: day(2024, 1, 20), Savings: 20, Confidence: 0.7},
		{Type: "Technical", Date: day(2024, 1, 10), Savings: 5, Confidence: 0.6},
		{Type: "Billing", Date: day(2024, 2, 1), Savings: 40, Confidence: 0.8},
	}}
	trends := MonthlyTrendsByType(ws)
	if len(trends) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(trends))
	}
	if !trends[0].Month.Equal(day(2024, 1, 1)) || trends[0].Type != "Billing" || !approx(trends[0].Savings, 30) {
		t.Fatalf("group 0 = %+v", trends[0])
	}
	if !approx(trends[0].AvgConfidence, 0.8) {
		t.Fatalf("group 0 confidence %v, want 0.8", trends[0].AvgConfidence)
	}
	if trends[1].Type != "Technical" {
		t.Fatalf("group 1 = %+v", trends[1])
	}
	if !trends[2].Month.Equal(day(2024, 2, 1)) {
		t.Fatalf("group 2 = %+v", trends[2])
	}
}

func TestFinancials(t *testing.T) {
	ws, _, c := scenarioWorkingSet(t)
	fin := Financials(ws, c.Range)
	if !approx(fin.TotalSavings, 150) || fin.TotalInterventions != 2 {
		t.Fatalf("financials = %+v", fin)
	}
	if !approx(fin.AvgSavingsPerIntervention, 75) {
		t.Fatalf("avg per intervention %v, want 75", fin.AvgSavingsPerIntervention)
	}
	// Range 2024-01-01..2024-01-08 spans 8 days inclusive.
	if !approx(fin.ProjectedAnnualSavings, 150.0/8.0*365) {
		t.Fatalf("projected annual %v", fin.ProjectedAnnualSavings)
	}
}

func TestDateRangeDays(t *testing.T) {
	r := DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 1)}
	if got := r.Days(); got != 1 {
		t.Fatalf("single-day range spans %d, want 1", got)
	}
	r.End = day(2024, 1, 8)
	if got := r.Days(); got != 8 {
		t.Fatalf("range spans %d, want 8", got)
	}
}

func TestEmptyWorkingSetNeutralValues(t *testing.T) {
	var ws WorkingSet
	snap := dataset.New(nil, nil, nil, nil, 1, time.Now())
	if TotalSavings(ws) != 0 || TotalInterventions(ws) != 0 || AvgConfidence(ws) != 0 || UniqueCustomers(ws) != 0 {
		t.Fatal("scalar aggregations must be zero on empty input")
	}
	if len(WeeklySavingsTrend(ws)) != 0 || len(InterventionPortfolio(ws)) != 0 || len(MonthlyTrendsByType(ws)) != 0 {
		t.Fatal("series aggregations must be empty on empty input")
	}
	if len(SegmentAdoptionRates(ws, snap)) != 0 || len(CumulativeSavings(ws)) != 0 {
		t.Fatal("rollups must be empty on empty input")
	}
	fin := Financials(ws, DateRange{Start: day(2024, 1, 1), End: day(2024, 12, 31)})
	if fin.AvgSavingsPerIntervention != 0 || fin.ProjectedAnnualSavings != 0 {
		t.Fatalf("financials not neutral: %+v", fin)
	}
}

func TestExcludedSegmentGivesNeutralEverything(t *testing.T) {
	_, snap, c := scenarioWorkingSet(t)
	c.Segments = []string{"Budget Conscious"}
	ws := BuildWorkingSet(snap, c)
	if ws.Len() != 0 {
		t.Fatalf("expected empty working set, got %d rows", ws.Len())
	}
	views := Compute(ws, snap, c)
	if views.TotalSavings != 0 || views.TotalInterventions != 0 || views.UniqueCustomers != 0 {
		t.Fatalf("views not neutral: %+v", views)
	}
	if len(views.WeeklySavings) != 0 || len(views.CumulativeSavings) != 0 || len(views.SegmentAdoption) != 0 {
		t.Fatal("series views must be empty")
	}
}

func TestTotalsComputedFromWorkingSetOnly(t *testing.T) {
	snap := fixtureSnapshot()
	c := allConstraints(snap)
	c.Types = []string{"Billing"}
	ws := BuildWorkingSet(snap, c)
	if got := TotalInterventions(ws); got != ws.Len() {
		t.Fatalf("total interventions %d != working set size %d", got, ws.Len())
	}
	// C2's Technical intervention is filtered out; GHOST is a join miss.
	if got := TotalSavings(ws); !approx(got, 150) {
		t.Fatalf("total savings %v, want 150", got)
	}
}
