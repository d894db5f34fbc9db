package dataset

import "time"

// Customer is one row of the customer dimension table.
type Customer struct {
	CustomerID        string    `json:"customer_id"`
	Segment           string    `json:"customer_segment"`
	MonthlyBill       float64   `json:"monthly_bill"`
	SatisfactionScore int       `json:"satisfaction_score"`
	SignupDate        time.Time `json:"signup_date"`
}

// Intervention is one row of the AI intervention fact table.
type Intervention struct {
	CustomerID string    `json:"customer_id"`
	Date       time.Time `json:"intervention_date"`
	Type       string    `json:"intervention_type"`
	Savings    float64   `json:"savings_amount"`
	Confidence float64   `json:"confidence_score"`
}

// UsageRecord is one row of the monthly usage table.
type UsageRecord struct {
	CustomerID  string    `json:"customer_id"`
	UsageDate   time.Time `json:"usage_date"`
	DataUsedGB  float64   `json:"data_used_gb"`
	MinutesUsed float64   `json:"minutes_used"`
	TextsSent   int       `json:"texts_sent"`
}

// SupportTicket is one row of the support ticket table.
type SupportTicket struct {
	TicketID    string    `json:"ticket_id"`
	CustomerID  string    `json:"customer_id"`
	CreatedDate time.Time `json:"created_date"`
	IssueType   string    `json:"issue_type"`
	Resolved    bool      `json:"resolved"`
}

// Snapshot is the loaded-once view of all four tables. It is never mutated
// after construction; reloads build a fresh Snapshot and swap the pointer.
type Snapshot struct {
	Customers      []Customer
	Interventions  []Intervention
	Usage          []UsageRecord
	SupportTickets []SupportTicket
	Version        int64
	LoadedAt       time.Time

	byCustomer map[string]*Customer
}

// New builds a Snapshot and its customer index.
func New(customers []Customer, interventions []Intervention, usage []UsageRecord, tickets []SupportTicket, version int64, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		Customers:      customers,
		Interventions:  interventions,
		Usage:          usage,
		SupportTickets: tickets,
		Version:        version,
		LoadedAt:       loadedAt,
		byCustomer:     make(map[string]*Customer, len(customers)),
	}
	for i := range s.Customers {
		c := &s.Customers[i]
		s.byCustomer[c.CustomerID] = c
	}
	return s
}

// Customer returns the customer row for id, or nil when unknown.
func (s *Snapshot) Customer(id string) *Customer {
	return s.byCustomer[id]
}

// InterventionTypes returns the distinct intervention types in first-seen order.
func (s *Snapshot) InterventionTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, iv := range s.Interventions {
		if !seen[iv.Type] {
			seen[iv.Type] = true
			out = append(out, iv.Type)
		}
	}
	return out
}

// Segments returns the distinct customer segments in first-seen order.
func (s *Snapshot) Segments() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range s.Customers {
		if !seen[c.Segment] {
			seen[c.Segment] = true
			out = append(out, c.Segment)
		}
	}
	return out
}

// SegmentSizes returns the total customer count per segment from the full,
// unfiltered customer table.
func (s *Snapshot) SegmentSizes() map[string]int {
	sizes := make(map[string]int)
	for _, c := range s.Customers {
		sizes[c.Segment]++
	}
	return sizes
}

// DateBounds returns the min and max intervention dates. ok is false when
// there are no interventions.
func (s *Snapshot) DateBounds() (min, max time.Time, ok bool) {
	for _, iv := range s.Interventions {
		if !ok {
			min, max, ok = iv.Date, iv.Date, true
			continue
		}
		if iv.Date.Before(min) {
			min = iv.Date
		}
		if iv.Date.After(max) {
			max = iv.Date
		}
	}
	return min, max, ok
}
