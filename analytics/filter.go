package analytics

import "pulse_analytics/internal/dataset"

// BuildWorkingSet filters the intervention table by the constraints and
// left-joins customer attributes onto each surviving row.
//
// The four steps run in order: date range, intervention type, join, segment.
// The join keeps rows whose customer_id has no match (nil attributes); those
// rows are then dropped by the segment step, since a nil segment can never be
// a selected segment. Rows filtered here are gone for every downstream
// aggregation, which is what keeps adoption rates bounded by real segment
// populations.
func BuildWorkingSet(snap *dataset.Snapshot, c Constraints) WorkingSet {
	types := toSet(c.Types)
	segments := toSet(c.Segments)

	rows := make([]WorkingRow, 0, len(snap.Interventions))
	for _, iv := range snap.Interventions {
		if !c.Range.Contains(iv.Date) {
			continue
		}
		if !types[iv.Type] {
			continue
		}
		row := WorkingRow{
			CustomerID: iv.CustomerID,
			Date:       iv.Date,
			Type:       iv.Type,
			Savings:    iv.Savings,
			Confidence: iv.Confidence,
		}
		if cust := snap.Customer(iv.CustomerID); cust != nil {
			row.Segment = &cust.Segment
			row.MonthlyBill = &cust.MonthlyBill
			row.SatisfactionScore = &cust.SatisfactionScore
		}
		if row.Segment == nil || !segments[*row.Segment] {
			continue
		}
		rows = append(rows, row)
	}
	return WorkingSet{Rows: rows}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
