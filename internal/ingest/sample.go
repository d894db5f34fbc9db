package ingest

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pulse_analytics/internal/dataset"
)

var (
	sampleSegments = []string{"Budget Conscious", "Power User", "Social Connector", "Business User"}
	sampleTypes    = []string{"Billing Support", "Technical Support", "Account Management", "Usage Optimization"}
	sampleIssues   = []string{"billing", "network", "device", "account"}
)

// Sample generates a deterministic synthetic dataset: 100 customers across
// four segments and 200 interventions spread over 2024. Used when the data
// directory holds no files yet.
func Sample(seed int64) Tables {
	rng := rand.New(rand.NewSource(seed))
	var t Tables

	for i := 1; i <= 100; i++ {
		t.Customers = append(t.Customers, dataset.Customer{
			CustomerID:        fmt.Sprintf("CUST%06d", i),
			Segment:           sampleSegments[rng.Intn(len(sampleSegments))],
			MonthlyBill:       25 + rng.Float64()*95,
			SatisfactionScore: 1 + rng.Intn(10),
			SignupDate:        day(2023, time.January, 1).AddDate(0, 0, rng.Intn(365)),
		})
	}

	start := day(2024, time.January, 1)
	for i := 0; i < 200; i++ {
		cust := t.Customers[rng.Intn(len(t.Customers))]
		t.Interventions = append(t.Interventions, dataset.Intervention{
			CustomerID: cust.CustomerID,
			Date:       start.AddDate(0, 0, i*365/200),
			Type:       sampleTypes[rng.Intn(len(sampleTypes))],
			Savings:    10 + rng.Float64()*140,
			Confidence: 0.6 + rng.Float64()*0.39,
		})
	}

	for _, cust := range t.Customers {
		for m := time.January; m <= time.June; m++ {
			t.Usage = append(t.Usage, dataset.UsageRecord{
				CustomerID:  cust.CustomerID,
				UsageDate:   day(2024, m, 1),
				DataUsedGB:  rng.Float64() * 40,
				MinutesUsed: rng.Float64() * 900,
				TextsSent:   rng.Intn(600),
			})
		}
	}

	for i := 0; i < 60; i++ {
		cust := t.Customers[rng.Intn(len(t.Customers))]
		t.SupportTickets = append(t.SupportTickets, dataset.SupportTicket{
			TicketID:    fmt.Sprintf("TICK%06d", i+1),
			CustomerID:  cust.CustomerID,
			CreatedDate: start.AddDate(0, 0, rng.Intn(365)),
			IssueType:   sampleIssues[rng.Intn(len(sampleIssues))],
			Resolved:    rng.Intn(4) != 0,
		})
	}
	return t
}

// WriteDir writes the tables back out as the four CSV files, the inverse of
// LoadDir. Used by the seed generator.
func WriteDir(dir string, t Tables) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	customers := [][]string{{"customer_id", "customer_segment", "monthly_bill", "satisfaction_score", "signup_date"}}
	for _, c := range t.Customers {
		customers = append(customers, []string{
			c.CustomerID, c.Segment, formatFloat(c.MonthlyBill), strconv.Itoa(c.SatisfactionScore), formatDate(c.SignupDate),
		})
	}
	if err := writeCSV(filepath.Join(dir, CustomersFile), customers); err != nil {
		return err
	}

	interventions := [][]string{{"customer_id", "intervention_date", "intervention_type", "savings_amount", "confidence_score"}}
	for _, iv := range t.Interventions {
		interventions = append(interventions, []string{
			iv.CustomerID, formatDate(iv.Date), iv.Type, formatFloat(iv.Savings), formatFloat(iv.Confidence),
		})
	}
	if err := writeCSV(filepath.Join(dir, InterventionsFile), interventions); err != nil {
		return err
	}

	usage := [][]string{{"customer_id", "usage_date", "data_used_gb", "minutes_used", "texts_sent"}}
	for _, u := range t.Usage {
		usage = append(usage, []string{
			u.CustomerID, formatDate(u.UsageDate), formatFloat(u.DataUsedGB), formatFloat(u.MinutesUsed), strconv.Itoa(u.TextsSent),
		})
	}
	if err := writeCSV(filepath.Join(dir, UsageFile), usage); err != nil {
		return err
	}

	tickets := [][]string{{"ticket_id", "customer_id", "created_date", "issue_type", "resolved"}}
	for _, tk := range t.SupportTickets {
		tickets = append(tickets, []string{
			tk.TicketID, tk.CustomerID, formatDate(tk.CreatedDate), tk.IssueType, strconv.FormatBool(tk.Resolved),
		})
	}
	return writeCSV(filepath.Join(dir, TicketsFile), tickets)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}
