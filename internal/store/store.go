package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pulse_analytics/analytics"
	"pulse_analytics/internal/dataset"
)

// Store wraps SQLite access for the four datasets and the refresh run ledger.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id TEXT PRIMARY KEY,
			customer_segment TEXT NOT NULL,
			monthly_bill REAL NOT NULL,
			satisfaction_score INTEGER NOT NULL,
			signup_date TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS ai_interventions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id TEXT,
			intervention_date TIMESTAMP NOT NULL,
			intervention_type TEXT NOT NULL,
			savings_amount REAL NOT NULL,
			confidence_score REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_interventions_date ON ai_interventions(intervention_date);`,
		`CREATE TABLE IF NOT EXISTS usage_data (
			customer_id TEXT,
			usage_date TIMESTAMP NOT NULL,
			data_used_gb REAL,
			minutes_used REAL,
			texts_sent INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS support_tickets (
			ticket_id TEXT PRIMARY KEY,
			customer_id TEXT,
			created_date TIMESTAMP NOT NULL,
			issue_type TEXT,
			resolved INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			run_id TEXT PRIMARY KEY,
			trigger_source TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP,
			status TEXT,
			working_set_size INTEGER,
			dataset_version INTEGER,
			constraint_version INTEGER
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// DatasetVersion returns the current dataset version, 0 when nothing has been
// loaded yet.
func (s *Store) DatasetVersion(ctx context.Context) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='dataset_version'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

// ReplaceAll atomically swaps the contents of all four dataset tables and
// bumps the dataset version. Returns the new version.
func (s *Store) ReplaceAll(ctx context.Context, customers []dataset.Customer, interventions []dataset.Intervention, usage []dataset.UsageRecord, tickets []dataset.SupportTicket) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, table := range []string{"customers", "ai_interventions", "usage_data", "support_tickets"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return 0, err
		}
	}
	for _, c := range customers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO customers(customer_id, customer_segment, monthly_bill, satisfaction_score, signup_date) VALUES(?,?,?,?,?)`,
			c.CustomerID, c.Segment, c.MonthlyBill, c.SatisfactionScore, c.SignupDate); err != nil {
			return 0, err
		}
	}
	for _, iv := range interventions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO ai_interventions(customer_id, intervention_date, intervention_type, savings_amount, confidence_score) VALUES(?,?,?,?,?)`,
			iv.CustomerID, iv.Date, iv.Type, iv.Savings, iv.Confidence); err != nil {
			return 0, err
		}
	}
	for _, u := range usage {
		if _, err := tx.ExecContext(ctx, `INSERT INTO usage_data(customer_id, usage_date, data_used_gb, minutes_used, texts_sent) VALUES(?,?,?,?,?)`,
			u.CustomerID, u.UsageDate, u.DataUsedGB, u.MinutesUsed, u.TextsSent); err != nil {
			return 0, err
		}
	}
	for _, t := range tickets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO support_tickets(ticket_id, customer_id, created_date, issue_type, resolved) VALUES(?,?,?,?,?)`,
			t.TicketID, t.CustomerID, t.CreatedDate, t.IssueType, t.Resolved); err != nil {
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES('dataset_version', 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1`); err != nil {
		return 0, err
	}
	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key='dataset_version'`).Scan(&version); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

// LoadSnapshot materializes an immutable in-memory snapshot of all four
// tables at the current dataset version.
func (s *Store) LoadSnapshot(ctx context.Context) (*dataset.Snapshot, error) {
	version, err := s.DatasetVersion(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	interventions, err := s.loadInterventions(ctx)
	if err != nil {
		return nil, err
	}
	usage, err := s.loadUsage(ctx)
	if err != nil {
		return nil, err
	}
	tickets, err := s.loadTickets(ctx)
	if err != nil {
		return nil, err
	}
	return dataset.New(customers, interventions, usage, tickets, version, time.Now().UTC()), nil
}

func (s *Store) loadCustomers(ctx context.Context) ([]dataset.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT customer_id, customer_segment, monthly_bill, satisfaction_score, signup_date FROM customers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dataset.Customer
	for rows.Next() {
		var c dataset.Customer
		var signup sql.NullTime
		if err := rows.Scan(&c.CustomerID, &c.Segment, &c.MonthlyBill, &c.SatisfactionScore, &signup); err != nil {
			return nil, err
		}
		c.SignupDate = signup.Time
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) loadInterventions(ctx context.Context) ([]dataset.Intervention, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT customer_id, intervention_date, intervention_type, savings_amount, confidence_score FROM ai_interventions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dataset.Intervention
	for rows.Next() {
		var iv dataset.Intervention
		var customer sql.NullString
		if err := rows.Scan(&customer, &iv.Date, &iv.Type, &iv.Savings, &iv.Confidence); err != nil {
			return nil, err
		}
		// A missing customer_id stays empty and resolves as a join miss.
		iv.CustomerID = customer.String
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (s *Store) loadUsage(ctx context.Context) ([]dataset.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT customer_id, usage_date, data_used_gb, minutes_used, texts_sent FROM usage_data`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dataset.UsageRecord
	for rows.Next() {
		var u dataset.UsageRecord
		if err := rows.Scan(&u.CustomerID, &u.UsageDate, &u.DataUsedGB, &u.MinutesUsed, &u.TextsSent); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) loadTickets(ctx context.Context) ([]dataset.SupportTicket, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticket_id, customer_id, created_date, issue_type, resolved FROM support_tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []dataset.SupportTicket
	for rows.Next() {
		var t dataset.SupportTicket
		if err := rows.Scan(&t.TicketID, &t.CustomerID, &t.CreatedDate, &t.IssueType, &t.Resolved); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecordRun persists one recompute run. Implements analytics.RunLog.
func (s *Store) RecordRun(ctx context.Context, run analytics.Run) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO refresh_runs(run_id, trigger_source, started_at, finished_at, status, working_set_size, dataset_version, constraint_version)
		VALUES(?,?,?,?,?,?,?,?)`,
		run.ID, run.Trigger, run.StartedAt, run.FinishedAt, run.Status, run.WorkingSetSize, run.DatasetVersion, run.ConstraintVersion)
	return err
}

// ListRuns returns the most recent recompute runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]analytics.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, trigger_source, started_at, finished_at, status, working_set_size, dataset_version, constraint_version
		FROM refresh_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []analytics.Run
	for rows.Next() {
		var run analytics.Run
		if err := rows.Scan(&run.ID, &run.Trigger, &run.StartedAt, &run.FinishedAt, &run.Status, &run.WorkingSetSize, &run.DatasetVersion, &run.ConstraintVersion); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Health returns err if DB not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
