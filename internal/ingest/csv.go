// Package ingest loads the four source CSV files into dataset records. Dates
// are parsed here; the analytics core never sees raw text.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pulse_analytics/internal/dataset"
)

// Source file names, matching the original synthetic data drops.
const (
	CustomersFile     = "synthetic-customers.csv"
	UsageFile         = "synthetic-usage-data.csv"
	TicketsFile       = "synthetic-support-tickets.csv"
	InterventionsFile = "synthetic-ai-interventions.csv"
)

// Tables bundles the parsed contents of all four files.
type Tables struct {
	Customers      []dataset.Customer
	Interventions  []dataset.Intervention
	Usage          []dataset.UsageRecord
	SupportTickets []dataset.SupportTicket
}

// LoadDir reads the four CSV files from dir. The customers and interventions
// files are required; usage and support tickets are optional and load as
// empty when absent.
func LoadDir(dir string) (Tables, error) {
	var t Tables

	customers, err := readCSV(filepath.Join(dir, CustomersFile))
	if err != nil {
		return t, err
	}
	t.Customers, err = parseCustomers(customers)
	if err != nil {
		return t, fmt.Errorf("%s: %w", CustomersFile, err)
	}

	interventions, err := readCSV(filepath.Join(dir, InterventionsFile))
	if err != nil {
		return t, err
	}
	t.Interventions, err = parseInterventions(interventions)
	if err != nil {
		return t, fmt.Errorf("%s: %w", InterventionsFile, err)
	}

	if usage, err := readCSV(filepath.Join(dir, UsageFile)); err == nil {
		if t.Usage, err = parseUsage(usage); err != nil {
			return t, fmt.Errorf("%s: %w", UsageFile, err)
		}
	}
	if tickets, err := readCSV(filepath.Join(dir, TicketsFile)); err == nil {
		if t.SupportTickets, err = parseTickets(tickets); err != nil {
			return t, fmt.Errorf("%s: %w", TicketsFile, err)
		}
	}
	return t, nil
}

// rowset is a parsed CSV with header-keyed column access.
type rowset struct {
	cols map[string]int
	rows [][]string
}

func readCSV(path string) (rowset, error) {
	var rs rowset
	file, err := os.Open(path)
	if err != nil {
		return rs, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return rs, err
	}
	if len(records) == 0 {
		return rs, fmt.Errorf("empty csv %s", path)
	}
	rs.cols = make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		rs.cols[name] = i
	}
	rs.rows = records[1:]
	return rs, nil
}

func (rs rowset) field(row []string, name string) string {
	idx, ok := rs.cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseCustomers(rs rowset) ([]dataset.Customer, error) {
	out := make([]dataset.Customer, 0, len(rs.rows))
	for i, row := range rs.rows {
		bill, err := parseFloat(rs.field(row, "monthly_bill"))
		if err != nil {
			return nil, fmt.Errorf("row %d monthly_bill: %w", i+1, err)
		}
		score, err := parseInt(rs.field(row, "satisfaction_score"))
		if err != nil {
			return nil, fmt.Errorf("row %d satisfaction_score: %w", i+1, err)
		}
		c := dataset.Customer{
			CustomerID:        rs.field(row, "customer_id"),
			Segment:           rs.field(row, "customer_segment"),
			MonthlyBill:       bill,
			SatisfactionScore: score,
		}
		// signup_date is optional in older drops.
		if raw := rs.field(row, "signup_date"); raw != "" {
			if d, err := parseDate(raw); err == nil {
				c.SignupDate = d
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func parseInterventions(rs rowset) ([]dataset.Intervention, error) {
	out := make([]dataset.Intervention, 0, len(rs.rows))
	for i, row := range rs.rows {
		date, err := parseDate(rs.field(row, "intervention_date"))
		if err != nil {
			return nil, fmt.Errorf("row %d intervention_date: %w", i+1, err)
		}
		savings, err := parseFloat(rs.field(row, "savings_amount"))
		if err != nil {
			return nil, fmt.Errorf("row %d savings_amount: %w", i+1, err)
		}
		confidence, err := parseFloat(rs.field(row, "confidence_score"))
		if err != nil {
			return nil, fmt.Errorf("row %d confidence_score: %w", i+1, err)
		}
		out = append(out, dataset.Intervention{
			CustomerID: rs.field(row, "customer_id"),
			Date:       date,
			Type:       rs.field(row, "intervention_type"),
			Savings:    savings,
			Confidence: confidence,
		})
	}
	return out, nil
}

func parseUsage(rs rowset) ([]dataset.UsageRecord, error) {
	out := make([]dataset.UsageRecord, 0, len(rs.rows))
	for i, row := range rs.rows {
		date, err := parseDate(rs.field(row, "usage_date"))
		if err != nil {
			return nil, fmt.Errorf("row %d usage_date: %w", i+1, err)
		}
		gb, _ := parseFloat(rs.field(row, "data_used_gb"))
		minutes, _ := parseFloat(rs.field(row, "minutes_used"))
		texts, _ := parseInt(rs.field(row, "texts_sent"))
		out = append(out, dataset.UsageRecord{
			CustomerID:  rs.field(row, "customer_id"),
			UsageDate:   date,
			DataUsedGB:  gb,
			MinutesUsed: minutes,
			TextsSent:   texts,
		})
	}
	return out, nil
}

func parseTickets(rs rowset) ([]dataset.SupportTicket, error) {
	out := make([]dataset.SupportTicket, 0, len(rs.rows))
	for i, row := range rs.rows {
		date, err := parseDate(rs.field(row, "created_date"))
		if err != nil {
			return nil, fmt.Errorf("row %d created_date: %w", i+1, err)
		}
		resolved, _ := strconv.ParseBool(rs.field(row, "resolved"))
		out = append(out, dataset.SupportTicket{
			TicketID:    rs.field(row, "ticket_id"),
			CustomerID:  rs.field(row, "customer_id"),
			CreatedDate: date,
			IssueType:   rs.field(row, "issue_type"),
			Resolved:    resolved,
		})
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
